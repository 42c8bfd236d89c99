// Command genmock generates deterministic mock CSV fixtures for the data-prep
// pipeline: a facility registry, daily emissions records, and per-capture
// image metadata. It runs the actual partition and split-resolution functions
// over the generated rows so the printed counts match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -facilities 12 -days 30 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
)

var baseDate = time.Date(2022, time.June, 1, 17, 30, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "output directory for CSV fixtures")
	nFacilities := flag.Int("facilities", 12, "number of facilities to generate")
	nDays := flag.Int("days", 30, "number of capture days per facility")
	seed := flag.Int64("seed", 7, "rng seed")
	trainRatio := flag.Float64("train-ratio", 0.8, "train share of the facility partition")
	testYear := flag.Int("test-year", 2023, "first calendar year routed to the test split")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	rng := rand.New(rand.NewSource(*seed))
	facilities := genFacilities(rng, *nFacilities)

	var emissions [][]string
	var images [][]string
	for _, f := range facilities {
		for d := 0; d < *nDays; d++ {
			day := baseDate.AddDate(0, 0, d*13) // spread captures across years
			co2 := f.baseEmissions * (0.7 + 0.6*rng.Float64())
			emissions = append(emissions, []string{
				strconv.FormatInt(f.id, 10),
				day.Format(time.DateOnly),
				strconv.FormatFloat(co2, 'f', 1, 64),
			})
			images = append(images, []string{
				strconv.FormatInt(f.id, 10),
				day.Format(time.RFC3339),
				fmt.Sprintf("s3://sentinel-cogs/mock/%d/%s.tif", f.id, day.Format("20060102")),
				"",
				strconv.FormatFloat(rng.Float64()*0.6, 'f', 2, 64),
			})
		}
	}

	if err := writeCSV(filepath.Join(*outDir, "campd_facilities.csv"),
		[]string{"facility_id", "facility_name", "latitude", "longitude"},
		facilityRecords(facilities)); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(*outDir, "campd_emissions.csv"),
		[]string{"facility_id", "date", "co2_mass_short_tons"}, emissions); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(*outDir, "image_metadata.csv"),
		[]string{"facility_id", "ts", "cog_url", "bands", "cloud_cover"}, images); err != nil {
		return err
	}
	log.Printf("wrote fixtures to %s: %d facilities, %d emission rows, %d image rows",
		*outDir, len(facilities), len(emissions), len(images))

	printSplitStats(facilities, *nDays, *trainRatio, *testYear)
	return nil
}

type mockFacility struct {
	id            int64
	name          string
	lat           float64
	lon           float64
	baseEmissions float64
}

func genFacilities(rng *rand.Rand, n int) []mockFacility {
	names := []string{"Oak Grove", "Martin Lake", "Limestone", "Sandow", "Big Brown", "Monticello",
		"Fayette", "Harrington", "Tolk", "Welsh", "Pirkey", "Coleto Creek"}
	out := make([]mockFacility, 0, n)
	for i := 0; i < n; i++ {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s %d", name, i/len(names)+1)
		}
		out = append(out, mockFacility{
			id:            int64(1000 + i),
			name:          name,
			lat:           28.0 + rng.Float64()*8.0,
			lon:           -103.0 + rng.Float64()*9.0,
			baseEmissions: 5000 + rng.Float64()*40000,
		})
	}
	return out
}

func facilityRecords(facilities []mockFacility) [][]string {
	out := make([][]string, 0, len(facilities))
	for _, f := range facilities {
		out = append(out, []string{
			strconv.FormatInt(f.id, 10),
			f.name,
			strconv.FormatFloat(f.lat, 'f', 4, 64),
			strconv.FormatFloat(f.lon, 'f', 4, 64),
		})
	}
	return out
}

func writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// printSplitStats runs the real partition and split resolution over the
// generated facilities so test assertions can be copied from trusted output.
func printSplitStats(facilities []mockFacility, days int, trainRatio float64, testYear int) {
	ids := make([]int64, 0, len(facilities))
	for _, f := range facilities {
		ids = append(ids, f.id)
	}

	mapping, err := domain.PartitionFacilities(ids, trainRatio, 42)
	if err != nil {
		log.Printf("partition failed: %v", err)
		return
	}

	counts := map[domain.Split]int{}
	for _, id := range ids {
		for d := 0; d < days; d++ {
			year := baseDate.AddDate(0, 0, d*13).Year()
			counts[domain.ResolveSplit(id, year, mapping, testYear)]++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Facilities: %d\n", len(ids))
	fmt.Printf("Rows: %d\n", len(ids)*days)
	fmt.Printf("By split: train=%d, val=%d, test=%d\n",
		counts[domain.SplitTrain], counts[domain.SplitVal], counts[domain.SplitTest])
}
