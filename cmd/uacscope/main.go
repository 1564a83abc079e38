// Command uacscope audits how Windows binaries declare their privilege
// requirements. It extracts every embedded application manifest from the
// given executables and reports the requested execution level, uiAccess
// and autoElevate flags without running any target code.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"

	"github.com/uacscope/uacscope"
)

type commandLine struct {
	JSON    bool
	ShowXML bool
}

func main() {
	var cmd commandLine
	flag.BoolVar(&cmd.JSON, "json", false, "Emit records as JSON instead of a table")
	flag.BoolVar(&cmd.ShowXML, "xml", false, "Print each manifest body after the report")
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [-json] [-xml] <exe-or-dll> [<exe-or-dll>...]\n", os.Args[0])
		os.Exit(2)
	}

	var records []uacscope.Manifest
	failed := false
	for _, path := range flag.Args() {
		manifests, err := uacscope.GetManifests(path)
		if err != nil {
			log.Error("cannot load image", "path", path, "err", err)
			failed = true
			continue
		}
		if len(manifests) == 0 {
			log.Warn("no manifest resources", "path", path)
		}
		records = append(records, manifests...)
	}

	if cmd.JSON {
		printJSON(records)
	} else {
		printTable(records)
	}
	if cmd.ShowXML {
		for _, m := range records {
			fmt.Printf("\n--- %s ---\n%s", m.FullPath, m.XML)
		}
	}

	if failed {
		os.Exit(1)
	}
}

func printJSON(records []uacscope.Manifest) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		log.Fatal("encode output", "err", err)
	}
}

func printTable(records []uacscope.Manifest) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Execution Level", "UI Access", "Auto Elevate", "Status"})
	for _, m := range records {
		status := "ok"
		if m.ParseError {
			status = "parse error"
		}
		table.Append([]string{
			m.Name,
			m.ExecutionLevel,
			fmt.Sprintf("%t", m.UIAccess),
			fmt.Sprintf("%t", m.AutoElevate),
			status,
		})
	}
	table.Render()
}
