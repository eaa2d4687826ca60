// Command thriftrt loads a Thrift IDL schema, optionally validates or
// dumps it, and can run a demo RPC server for the service it declares.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ritksm/thriftpy/config"
	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/schema"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	idlPath := flag.String("idl", "", "Path to a single IDL file (overrides config's schema.roots[0])")
	showVersion := flag.Bool("version", false, "Show version information")
	validateOnly := flag.Bool("validate", false, "Load and validate the schema, then exit")
	dump := flag.Bool("dump", false, "Print a summary of the loaded schema and exit")
	serveAddr := flag.String("serve", "", "Run a demo RPC server on this address (e.g. :6000), serving the schema's first service")
	flag.Parse()

	if *showVersion {
		fmt.Printf("thriftrt %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.NewLoader().Load(*configPath)
		if err != nil {
			log.Fatalf("thriftrt: load config: %v", err)
		}
		cfg = loaded
	}
	if *idlPath != "" {
		cfg.Schema.Roots = []string{*idlPath}
	}
	if len(cfg.Schema.Roots) == 0 {
		log.Fatal("thriftrt: no IDL root given; pass -idl or set schema.roots in -config")
	}

	if l, _, err := logging.New(cfg.ToLoggingConfig()); err == nil {
		logging.SetGlobal(l)
	}

	s, err := schema.LoadSchema(cfg.Schema.Roots[0], schema.LoadOptions{
		IncludeDirs: cfg.Schema.IncludeDirs,
	})
	if err != nil {
		log.Fatalf("thriftrt: load schema: %v", err)
	}

	if *validateOnly {
		fmt.Println("schema is valid")
		os.Exit(0)
	}

	if *dump {
		dumpSchema(s)
		if *serveAddr == "" {
			os.Exit(0)
		}
	}

	if *serveAddr != "" {
		services := s.Services()
		if len(services) == 0 {
			log.Fatal("thriftrt: schema declares no services to serve")
		}
		if err := serve(*serveAddr, services[0], cfg); err != nil {
			log.Fatalf("thriftrt: serve: %v", err)
		}
		return
	}

	dumpSchema(s)
}

func dumpSchema(s *schema.Schema) {
	for _, e := range s.Enums() {
		fmt.Printf("enum %s\n", e.Name)
		for _, v := range e.Values {
			fmt.Printf("  %s = %d\n", v.Symbol, v.Value)
		}
	}
	for _, sd := range s.Structs() {
		fmt.Printf("%s %s\n", sd.Kind, sd.Name)
		for _, f := range sd.Fields {
			fmt.Printf("  %d: %s %s\n", f.ID, f.Requiredness, f.Name)
		}
	}
	for _, svc := range s.Services() {
		fmt.Printf("service %s\n", svc.Name)
		for _, m := range svc.AllMethods() {
			onewayTag := ""
			if m.Oneway {
				onewayTag = "oneway "
			}
			fmt.Printf("  %s%s\n", onewayTag, m.Name)
		}
	}
}
