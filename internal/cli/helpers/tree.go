package helpers

import (
	"strings"
)

// TreeNode is a node rendered by RenderTree.
type TreeNode struct {
	Label string
	// Details are printed under the label, one per line.
	Details  []string
	Children []*TreeNode
}

// RenderTree renders root and its descendants in ASCII art format.
func RenderTree(root *TreeNode) string {
	if root == nil {
		return ""
	}

	var buf strings.Builder
	buf.WriteString(root.Label + "\n")
	renderDetails(&buf, root, "")
	renderChildren(&buf, root, "")
	return buf.String()
}

func renderTreeNode(buf *strings.Builder, node *TreeNode, prefix string, isLast bool) {
	connector := "├─"
	childPrefix := prefix + "│ "
	if isLast {
		connector = "└─"
		childPrefix = prefix + "  "
	}

	buf.WriteString(prefix + connector + " " + node.Label + "\n")
	renderDetails(buf, node, childPrefix)
	renderChildren(buf, node, childPrefix)
}

func renderDetails(buf *strings.Builder, node *TreeNode, prefix string) {
	bar := "  "
	if len(node.Children) > 0 {
		bar = "│ "
	}
	for _, d := range node.Details {
		buf.WriteString(prefix + bar + d + "\n")
	}
}

func renderChildren(buf *strings.Builder, node *TreeNode, prefix string) {
	for i, child := range node.Children {
		renderTreeNode(buf, child, prefix, i == len(node.Children)-1)
	}
}
