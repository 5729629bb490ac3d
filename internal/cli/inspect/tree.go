package inspect

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/dwarfkit/internal/cli/helpers"
	"github.com/coral-mesh/dwarfkit/internal/errors"
	"github.com/coral-mesh/dwarfkit/pkg/dwarf"
)

type entryRow struct {
	Unit   string            `header:"UNIT" json:"unit"`
	Offset string            `header:"OFFSET" json:"offset"`
	Depth  int               `header:"DEPTH" json:"depth"`
	Tag    string            `header:"TAG" json:"tag"`
	Name   string            `header:"NAME" json:"name,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

type treeOptions struct {
	unit     string
	maxDepth int
	tags     []string
	noAttrs  bool
}

// NewTreeCmd creates the tree command.
func NewTreeCmd(env *helpers.Env) *cobra.Command {
	var opts treeOptions

	cmd := &cobra.Command{
		Use:   "tree <object-file>",
		Short: "Print the entry tree of each unit",
		Long: `Print the debugging information entries of each unit with their
attributes. Strings, indexed addresses and references are resolved.

With --tag only entries of the given tags are printed; they are attached to
their nearest printed ancestor.

Examples:
  dwarfkit tree ./app --max-depth 1
  dwarfkit tree ./app --unit 0x2d --tag DW_TAG_subprogram
  dwarfkit tree ./app -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("max-depth") {
				opts.maxDepth = env.Config.Tree.MaxDepth
			}
			if !cmd.Flags().Changed("tag") {
				opts.tags = env.Config.Tree.Tags
			}
			if opts.maxDepth < 0 {
				return fmt.Errorf("--max-depth must be >= 0")
			}
			return runTree(env, args[0], opts)
		},
	}

	helpers.AddUnitFlag(cmd, &opts.unit)
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Deepest level printed below each unit root (0 = unlimited)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Only print entries with these tags (e.g. DW_TAG_subprogram)")
	cmd.Flags().BoolVar(&opts.noAttrs, "no-attrs", false, "Omit attributes")
	return cmd
}

func runTree(env *helpers.Env, path string, opts treeOptions) error {
	s, err := env.Open(path)
	if err != nil {
		return err
	}
	defer errors.DeferClose(env.Logger, s, "Failed to close object file")

	b := &treeBuilder{env: env, opts: opts, tags: map[string]bool{}, rows: []entryRow{}}
	for _, t := range opts.tags {
		b.tags[t] = true
	}

	var walkErr error
	for u, err := range helpers.SelectUnits(s, opts.unit) {
		if err != nil {
			walkErr = err
			break
		}
		if err := b.unit(u); err != nil {
			walkErr = err
			break
		}
	}

	if env.OutputFormat() == helpers.FormatText {
		for _, t := range b.trees {
			if _, err := io.WriteString(env.Out, t.title+"\n"+helpers.RenderTree(t.root)+"\n"); err != nil {
				return err
			}
		}
	} else if err := env.Render(b.rows); err != nil {
		return err
	}
	return walkErr
}

type unitTree struct {
	title string
	root  *helpers.TreeNode
}

type treeBuilder struct {
	env  *helpers.Env
	opts treeOptions
	tags map[string]bool

	trees []unitTree
	rows  []entryRow
}

func (b *treeBuilder) unit(u *dwarf.Unit) error {
	root, err := u.Root()
	if err != nil {
		return err
	}

	st := b.env.Styles
	tree := unitTree{
		title: st.Header(fmt.Sprintf("%s unit at %s (%s, version %d, %s)",
			u.Type, hexOffset(u.Offset), u.Section, u.Version, unitFormat(u))),
	}
	// parents[d] is the printed node that entries at depth d+1 attach to.
	var parents []*helpers.TreeNode

	err = dwarf.Walk(root, func(e *dwarf.Entry, depth int) error {
		parents = parents[:depth]
		var parent *helpers.TreeNode
		if depth > 0 {
			parent = parents[depth-1]
		}

		if depth == 0 || len(b.tags) == 0 || b.tags[e.Tag.String()] {
			node := b.node(u, e)
			b.rows = append(b.rows, b.row(u, e, depth))
			if parent == nil {
				tree.root = node
			} else {
				parent.Children = append(parent.Children, node)
			}
			parent = node
		}
		parents = append(parents, parent)

		if b.opts.maxDepth > 0 && depth >= b.opts.maxDepth {
			return dwarf.SkipChildren
		}
		return nil
	})
	b.trees = append(b.trees, tree)
	return err
}

func (b *treeBuilder) node(u *dwarf.Unit, e *dwarf.Entry) *helpers.TreeNode {
	st := b.env.Styles
	n := &helpers.TreeNode{
		Label: st.Offset(fmt.Sprintf("<0x%x>", e.Offset)) + " " + st.Tag(e.Tag.String()),
	}
	if b.opts.noAttrs {
		return n
	}
	for _, at := range e.Attributes() {
		n.Details = append(n.Details,
			st.Attr(fmt.Sprintf("%-24s", at.Attr.String()))+" "+st.Value(FormatValue(u, at)))
	}
	return n
}

func (b *treeBuilder) row(u *dwarf.Unit, e *dwarf.Entry, depth int) entryRow {
	row := entryRow{
		Unit:   hexOffset(u.Offset),
		Offset: hexOffset(e.Offset),
		Depth:  depth,
		Tag:    e.Tag.String(),
	}
	if e.Has(dwarf.AttrName) {
		if name, err := e.Name(); err == nil {
			row.Name = name
		}
	}
	if !b.opts.noAttrs {
		row.Attrs = make(map[string]string, len(e.Attributes()))
		for _, at := range e.Attributes() {
			row.Attrs[at.Attr.String()] = FormatValue(u, at)
		}
	}
	return row
}
