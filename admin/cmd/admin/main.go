package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/salesdash/admin/internal/admin"
	"github.com/malbeclabs/salesdash/api/config"
	"github.com/malbeclabs/salesdash/dashboard/pkg/filter"
	"github.com/malbeclabs/salesdash/utils/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Input configuration
	dataDirFlag := flag.String("data-dir", config.DefaultDataDir, "Directory or s3://bucket/prefix holding the workbooks (or set DATA_DIR env var)")
	schemaFileFlag := flag.String("schema-file", "", "YAML file overriding the workbook layout (or set SCHEMA_FILE env var)")
	s3RegionFlag := flag.String("s3-region", config.DefaultRegion, "S3 region (or set S3_REGION env var)")
	s3EndpointFlag := flag.String("s3-endpoint", "", "Custom S3 endpoint (or set S3_ENDPOINT env var)")
	s3PathStyleFlag := flag.Bool("s3-path-style", false, "Use path-style S3 addressing (or set S3_PATH_STYLE=true env var)")

	// Commands
	reportFlag := flag.Bool("report", false, "Print the merge report")
	strictFlag := flag.Bool("strict", false, "With --report, fail when the merge left unmatched keys or other issues")
	optionsFlag := flag.Bool("options", false, "Print the dropdown options for the selections given below")
	dumpFlag := flag.Bool("dump", false, "Write the merged table as CSV")
	outFlag := flag.String("out", "", "With --dump, write to this file instead of stdout")

	// Selections for --options
	typeFlag := flag.String("type", "", "Product type selection")
	brandFlag := flag.StringArray("brand", nil, "Brand selection (repeatable)")
	productFlag := flag.String("product", "", "Product selection")
	storeFlag := flag.StringArray("store", nil, "Store selection (repeatable)")
	customerFlag := flag.String("customer", "", "Customer selection")

	flag.Parse()

	log := logger.New(*verboseFlag)

	// Override input flags with environment variables if set
	if v := os.Getenv("DATA_DIR"); v != "" {
		*dataDirFlag = v
	}
	if v := os.Getenv("SCHEMA_FILE"); v != "" {
		*schemaFileFlag = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		*s3RegionFlag = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		*s3EndpointFlag = v
	}
	if os.Getenv("S3_PATH_STYLE") == "true" {
		*s3PathStyleFlag = true
	}

	if !*reportFlag && !*optionsFlag && !*dumpFlag {
		flag.Usage()
		return fmt.Errorf("one of --report, --options or --dump is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ds, err := admin.Load(ctx, admin.LoadConfig{
		Logger:      log,
		DataDir:     *dataDirFlag,
		SchemaFile:  *schemaFileFlag,
		S3Region:    *s3RegionFlag,
		S3Endpoint:  *s3EndpointFlag,
		S3PathStyle: *s3PathStyleFlag,
	})
	if err != nil {
		return err
	}

	if *reportFlag {
		if err := admin.PrintReport(os.Stdout, ds, *strictFlag); err != nil {
			return err
		}
	}

	if *optionsFlag {
		c := filter.Criteria{
			Type:     *typeFlag,
			Brands:   *brandFlag,
			Product:  *productFlag,
			Stores:   *storeFlag,
			Customer: *customerFlag,
		}
		if err := admin.PrintOptions(os.Stdout, ds.All(), c); err != nil {
			return err
		}
	}

	if *dumpFlag {
		var w io.Writer = os.Stdout
		if *outFlag != "" {
			f, err := os.Create(*outFlag)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", *outFlag, err)
			}
			defer f.Close()
			w = f
		}
		if err := admin.DumpCSV(w, ds.Table()); err != nil {
			return err
		}
		log.Info("admin: dump written", "rows", ds.Len(), "out", *outFlag)
	}

	return nil
}
