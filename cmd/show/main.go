package main

import (
	"log"
	"os"
	"strconv"

	"github.com/anrid/colombia-stats/pkg/config"
	"github.com/anrid/colombia-stats/pkg/stats"
	"github.com/davecgh/go-spew/spew"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lc := cfg.LoaderConfig()
	ds, found, err := stats.LoadIfExists(lc.CachePath, stats.Schema{
		NameField:     lc.Geometry.NameField,
		CountColumn:   lc.StatsColumns.Count,
		AverageColumn: lc.StatsColumns.Average,
	})
	if err != nil {
		log.Panic(err)
	}
	if !found {
		log.Panic("No merged dataset found, run the create command in `cmd/create` first.")
	}
	ds.Derive()

	ds.Info(os.Stdout)

	if dump, _ := strconv.ParseBool(os.Getenv("SHOW_DUMP")); dump && len(ds.Regions) > 0 {
		first := *ds.Regions[0]
		first.Geometry = nil
		spew.Dump(first)
	}

	p := stats.Printer()

	p.Println("Programas por departamento:")
	ds.PrintRanking(os.Stdout, stats.ByProgramCount)

	p.Println("\nPromedio de matriculados por departamento:")
	ds.PrintRanking(os.Stdout, stats.ByAverageEnrollment)
}
