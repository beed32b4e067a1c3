// Command scaffold generates record, repository and service files from an
// index mapping.
//
//	scaffold -mapping books.json -name book -pkg catalog -out ./catalog
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/goliatone/go-entity-repository/config"
	"github.com/goliatone/go-entity-repository/internal/scaffold"
)

func main() {
	mapping := flag.String("mapping", "", "path to the JSON or YAML index mapping")
	name := flag.String("name", "", "record name, e.g. book")
	pkg := flag.String("pkg", "", "package name of the generated files")
	module := flag.String("module", scaffold.DefaultModule, "import path of the entity repository module")
	out := flag.String("out", ".", "output directory")
	flag.Parse()

	_ = godotenv.Load()
	logger := config.NewLogger(config.Log{Level: os.Getenv(config.EnvLogLevel)}, os.Stderr)

	if err := run(*mapping, *name, *pkg, *module, *out, logger); err != nil {
		logger.Error("scaffold failed", "error", err)
		os.Exit(1)
	}
}

func run(mappingPath, name, pkg, module, out string, logger *slog.Logger) error {
	if mappingPath == "" || name == "" {
		flag.Usage()
		os.Exit(2)
	}
	if pkg == "" {
		pkg = filepath.Base(out)
		if pkg == "." || pkg == string(filepath.Separator) {
			pkg = "models"
		}
	}

	data, err := os.ReadFile(mappingPath)
	if err != nil {
		return err
	}
	m, err := scaffold.ParseMapping(data)
	if err != nil {
		return err
	}
	model, err := scaffold.BuildModel(name, m)
	if err != nil {
		return err
	}
	files, err := scaffold.Generate(model, scaffold.Options{Package: pkg, Module: module})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		path := filepath.Join(out, f.Name)
		if err := os.WriteFile(path, f.Source, 0o644); err != nil {
			return err
		}
		logger.Info("file written", "path", path, "bytes", len(f.Source))
	}
	return nil
}
