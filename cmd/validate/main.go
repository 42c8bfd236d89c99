// Command validate performs end-to-end integrity checks across the data-prep
// CSV sources: schema and value ranges per file, join coverage across the
// three sources, and feasibility of the configured facility split. It builds
// the canonical table with the actual join code so the reported counts match
// real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -images data/mock/image_metadata.csv \
//	  -facilities data/mock/campd_facilities.csv \
//	  -emissions data/mock/campd_emissions.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/carbonwatch/emissions-dataprep/internal/adapter/tabular"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	images := flag.String("images", "", "path to image metadata CSV")
	facilities := flag.String("facilities", "", "path to facility registry CSV")
	emissions := flag.String("emissions", "", "path to emissions CSV")
	trainRatio := flag.Float64("train-ratio", 0.8, "train share of the facility partition")
	testYear := flag.Int("test-year", 2023, "first calendar year routed to the test split")
	flag.Parse()

	if *images == "" || *facilities == "" || *emissions == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*images, *facilities, *emissions, *trainRatio, *testYear); code != 0 {
		os.Exit(code)
	}
}

func run(imagesPath, facilitiesPath, emissionsPath string, trainRatio float64, testYear int) int {
	fmt.Println("=== Emissions Data Integrity Validation ===")
	fmt.Println()

	imageRows, err := loadCSV(imagesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load image metadata: %v\n", err)
		return 1
	}
	facilityRows, err := loadCSV(facilitiesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load facilities: %v\n", err)
		return 1
	}
	emissionRows, err := loadCSV(emissionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load emissions: %v\n", err)
		return 1
	}

	builder := tabular.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	table, buildErr := builder.BuildTable(context.Background(), imagesPath, facilitiesPath, emissionsPath)

	phases := []*phase{
		validateSchemas(imageRows, facilityRows, emissionRows),
		validateJoin(table, buildErr, imageRows, facilityRows, emissionRows),
		validateSplitFeasibility(table, trainRatio, testYear),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d image, %d facility, %d emission; %d joined\n",
		len(imageRows), len(facilityRows), len(emissionRows), table.Len())
	printSummaryStats(table)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

// ── Phase 1: Schema & value ranges ──

func validateSchemas(images, facilities, emissions []csvRow) *phase {
	p := &phase{name: "Phase 1: Schema & Value Ranges"}

	for _, row := range images {
		checkInt(p, "image", row, "facility_id")
		if ts := row.fields["ts"]; ts != "" {
			if _, err := time.Parse(time.RFC3339, ts); err != nil {
				p.errorf("image line %d: ts %q is not RFC3339", row.lineNum, ts)
			}
		} else {
			p.errorf("image line %d: ts is empty", row.lineNum)
		}
		if row.fields["cog_url"] == "" && row.fields["bands"] == "" {
			p.errorf("image line %d: no cog_url and no bands", row.lineNum)
		}
		if cc, ok := checkFloat(p, "image", row, "cloud_cover"); ok && (cc < 0 || cc > 1) {
			p.errorf("image line %d: cloud_cover %g outside [0, 1]", row.lineNum, cc)
		}
	}

	for _, row := range facilities {
		checkInt(p, "facility", row, "facility_id")
		if row.fields["facility_name"] == "" {
			p.errorf("facility line %d: facility_name is empty", row.lineNum)
		}
		if lat, ok := checkFloat(p, "facility", row, "latitude"); ok && (lat < -90 || lat > 90) {
			p.errorf("facility line %d: latitude %g outside [-90, 90]", row.lineNum, lat)
		}
		if lon, ok := checkFloat(p, "facility", row, "longitude"); ok && (lon < -180 || lon > 180) {
			p.errorf("facility line %d: longitude %g outside [-180, 180]", row.lineNum, lon)
		}
	}

	for _, row := range emissions {
		checkInt(p, "emission", row, "facility_id")
		if d := row.fields["date"]; d != "" {
			if _, err := time.Parse(time.DateOnly, d); err != nil {
				p.errorf("emission line %d: date %q is not YYYY-MM-DD", row.lineNum, d)
			}
		} else {
			p.errorf("emission line %d: date is empty", row.lineNum)
		}
		if co2, ok := checkFloat(p, "emission", row, "co2_mass_short_tons"); ok && co2 < 0 {
			p.errorf("emission line %d: negative co2_mass_short_tons %g", row.lineNum, co2)
		}
	}

	return p
}

func checkInt(p *phase, source string, row csvRow, col string) {
	if _, err := strconv.ParseInt(row.fields[col], 10, 64); err != nil {
		p.errorf("%s line %d: %s %q is not an integer", source, row.lineNum, col, row.fields[col])
	}
}

func checkFloat(p *phase, source string, row csvRow, col string) (float64, bool) {
	v, err := strconv.ParseFloat(row.fields[col], 64)
	if err != nil {
		p.errorf("%s line %d: %s %q is not a number", source, row.lineNum, col, row.fields[col])
		return 0, false
	}
	return v, true
}

// ── Phase 2: Join coverage ──
// Validates the canonical join built by the actual pipeline code.

func validateJoin(table domain.Table, buildErr error, images, facilities, emissions []csvRow) *phase {
	p := &phase{name: "Phase 2: Join Coverage"}

	if buildErr != nil {
		p.errorf("canonical join failed: %v", buildErr)
		return p
	}
	if missing := table.MissingColumns(domain.RequiredColumns); len(missing) > 0 {
		p.errorf("joined table missing columns: %v", missing)
	}
	if table.Len() == 0 {
		p.errorf("join produced no rows")
		return p
	}
	if table.Len() > len(images) {
		p.errorf("join has %d rows from %d image records", table.Len(), len(images))
	}

	facilityIDs := map[string]bool{}
	for _, row := range facilities {
		facilityIDs[row.fields["facility_id"]] = true
	}
	emissionKeys := map[string]bool{}
	for _, row := range emissions {
		emissionKeys[row.fields["facility_id"]+"|"+row.fields["date"]] = true
	}

	orphanFacility, orphanEmission := 0, 0
	for _, row := range images {
		if !facilityIDs[row.fields["facility_id"]] {
			orphanFacility++
			continue
		}
		ts, err := time.Parse(time.RFC3339, row.fields["ts"])
		if err != nil {
			continue // reported in phase 1
		}
		if !emissionKeys[row.fields["facility_id"]+"|"+ts.UTC().Format(time.DateOnly)] {
			orphanEmission++
		}
	}
	if dropped := len(images) - table.Len(); dropped != orphanFacility+orphanEmission {
		p.errorf("join dropped %d rows, expected %d (%d without facility, %d without emissions)",
			dropped, orphanFacility+orphanEmission, orphanFacility, orphanEmission)
	}
	if orphanFacility > 0 {
		fmt.Printf("  Note: %d image row(s) without a facility registry match\n", orphanFacility)
	}
	if orphanEmission > 0 {
		fmt.Printf("  Note: %d image row(s) without an emissions match\n", orphanEmission)
	}

	return p
}

// ── Phase 3: Split feasibility ──

func validateSplitFeasibility(table domain.Table, trainRatio float64, testYear int) *phase {
	p := &phase{name: "Phase 3: Split Feasibility"}

	ids := table.FacilityIDs()
	if len(ids) < 2 {
		p.errorf("only %d distinct facility(ies); train/val separation needs at least 2", len(ids))
		return p
	}

	mapping, err := domain.PartitionFacilities(ids, trainRatio, 42)
	if err != nil {
		p.errorf("partition failed: %v", err)
		return p
	}

	counts := map[domain.Split]int{}
	for _, row := range table.Rows {
		counts[domain.ResolveSplit(row.FacilityID, row.TS.Year(), mapping, testYear)]++
	}
	if counts[domain.SplitTrain] == 0 {
		p.errorf("no train rows at ratio %.2f with test year %d", trainRatio, testYear)
	}
	if counts[domain.SplitVal] == 0 {
		p.errorf("no val rows at ratio %.2f with test year %d", trainRatio, testYear)
	}
	fmt.Printf("  Split preview: train=%d, val=%d, test=%d\n",
		counts[domain.SplitTrain], counts[domain.SplitVal], counts[domain.SplitTest])

	return p
}

// ── Summary stats ──

func printSummaryStats(table domain.Table) {
	if table.Len() == 0 {
		return
	}
	co2 := make([]float64, 0, table.Len())
	cloud := make([]float64, 0, table.Len())
	for _, row := range table.Rows {
		co2 = append(co2, row.Emissions)
		cloud = append(cloud, row.CloudCover)
	}
	co2Mean, co2Std := stat.MeanStdDev(co2, nil)
	cloudMean, cloudStd := stat.MeanStdDev(cloud, nil)
	fmt.Printf("co2_mass_short_tons: mean=%.1f std=%.1f\n", co2Mean, co2Std)
	fmt.Printf("cloud_cover: mean=%.3f std=%.3f\n", cloudMean, cloudStd)
}
