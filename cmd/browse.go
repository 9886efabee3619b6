package cmd

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/dwarflint/dwarflint/internal/abbrev"
	"github.com/dwarflint/dwarflint/internal/dieinfo"
	"github.com/dwarflint/dwarflint/internal/diag"
	"github.com/dwarflint/dwarflint/internal/objfile"
)

var browseCmd = &cobra.Command{
	Use:   "browse FILE",
	Short: "Interactively browse a file's DIE tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowse,
}

func init() {
	RootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	path := args[0]

	sections, err := objfile.Load(path)
	if err != nil {
		return err
	}
	if !sections.Abbrev.Present || !sections.Info.Present {
		return fmt.Errorf("%s: no .debug_abbrev/.debug_info sections to browse", path)
	}

	d := diag.New(discardWriter{})
	d.ApplyQuiet()

	tables, err := abbrev.LoadTables(sections.Abbrev.Data, 0, sections.ByteOrder, d)
	if err != nil {
		return err
	}
	info, err := dieinfo.Parse(sections.Info.Data, 0, sections.ByteOrder, tables, uint64(len(sections.Str.Data)), d)
	if err != nil {
		return err
	}

	root := tview.NewTreeNode(path).SetColor(tcell.ColorYellow)
	for _, cu := range info.CUs {
		cuNode := tview.NewTreeNode(fmt.Sprintf("CU @ 0x%x (version %d, %d-byte addresses)", cu.Offset, cu.Version, cu.AddressSize)).
			SetSelectable(true)
		root.AddChild(cuNode)
	}

	tree := tview.NewTreeView().
		SetRoot(root).
		SetCurrentNode(root)

	app := tview.NewApplication().SetRoot(tree, true)
	return app.Run()
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
