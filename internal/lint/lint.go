// Package lint is the driver: it wires the abbreviation loader, the DIE
// tree walker and the aranges/pubnames parsers together against one
// object file's DWARF sections, in the order each depends on the last,
// and turns the result into a process exit code.
package lint

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/applog"
	"github.com/dwarflint/dwarflint/internal/aranges"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/objfile"
	"github.com/dwarflint/dwarflint/internal/pubnames"
)

// Options mirrors the command-line flags that shape how strictly a file
// is checked.
type Options struct {
	Strict        bool
	GNU           bool
	IgnoreMissing bool
	Quiet         bool
	Skip          []string
	Color         func(level string) (prefix, reset string)
	// Logger receives the tool's own progress messages, distinct from the
	// diagnostics emitted about the file being checked. Defaults to a
	// discard logger when nil.
	Logger *slog.Logger
}

// Report is the outcome of linting one object file.
type Report struct {
	Path       string
	ErrorCount int
	Messages   []diag.Message
}

// Run checks one object file's DWARF sections and writes human-readable
// diagnostics to out as it goes. The returned Report's ErrorCount drives
// the process exit code: zero means clean.
func Run(path string, sections *objfile.Sections, opts Options, out io.Writer) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	d := diag.New(out)
	if opts.Strict {
		d.ApplyStrict()
	}
	if opts.GNU {
		d.ApplyGNU()
	}
	if opts.IgnoreMissing {
		d.ApplyIgnoreMissing()
	}
	if opts.Quiet {
		d.ApplyQuiet()
	}
	if opts.Color != nil {
		d.SetColor(opts.Color)
	}
	for _, name := range opts.Skip {
		area, ok := diag.AreaByName(name)
		if !ok {
			return nil, fmt.Errorf("lint: unknown area %q", name)
		}
		d.Skip(area)
	}

	if !sections.Abbrev.Present || !sections.Info.Present {
		if !opts.IgnoreMissing {
			d.Emit(diag.AreaELF|diag.ErrorFlag, diag.NewWhere(path), "file has no .debug_abbrev/.debug_info sections")
		}
		d.Summarize()
		return &Report{Path: path, ErrorCount: d.ErrorCount(), Messages: d.Messages()}, nil
	}

	logger.Debug("loading abbreviation tables", "file", path, "offset", sections.Abbrev.Offset)
	tables, err := abbrev.LoadTables(sections.Abbrev.Data, 0, sections.ByteOrder, d)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded abbreviation tables", "file", path, "count", len(tables))

	logger.Debug("walking compilation units", "file", path, "offset", sections.Info.Offset)
	info, err := dieinfo.Parse(sections.Info.Data, 0, sections.ByteOrder, tables, uint64(len(sections.Str.Data)), d)
	if err != nil {
		return nil, err
	}
	logger.Debug("walked compilation units", "file", path, "count", len(info.CUs))

	if sections.Aranges.Present {
		logger.Debug("checking address ranges", "file", path, "offset", sections.Aranges.Offset)
		if _, err := aranges.Parse(sections.Aranges.Data, 0, sections.ByteOrder, info.CUs, d); err != nil {
			return nil, err
		}
	} else if !opts.IgnoreMissing {
		d.Emit(diag.AreaELF, diag.NewWhere(path), "file has no .debug_aranges section")
	}

	if sections.Pubnames.Present {
		logger.Debug("checking public names", "file", path, "offset", sections.Pubnames.Offset)
		if _, err := pubnames.Parse(sections.Pubnames.Data, 0, sections.ByteOrder, info.CUs, info.Defined.Has, d); err != nil {
			return nil, err
		}
	} else if !opts.IgnoreMissing {
		d.Emit(diag.AreaELF, diag.NewWhere(path), "file has no .debug_pubnames section")
	}

	strWhere := diag.NewWhere(".debug_str")
	info.StrCoverage.ForEachHole(func(begin, end uint64) {
		d.Emit(diag.AreaStrings|diag.Bloat|diag.Impact1, strWhere,
			"unreferenced string data in range 0x%x..0x%x", begin, end)
	})

	logger.Debug("finished checking file", "file", path, "errors", d.ErrorCount())
	d.Summarize()

	return &Report{Path: path, ErrorCount: d.ErrorCount(), Messages: d.Messages()}, nil
}
