package classmerge

import (
	"fmt"
	"strings"

	"github.com/dexmerge/internal/dex"
)

// Print renders the finalized hierarchy depth-first. Children and
// mergeables are name ordered, so the rendering is stable across runs and
// diffable between builds. Node lines start with '+', dispatch scopes the
// roots declare with '-^', mergeables with '-', merger field layouts with
// '-*' and dispatch groups with '-#'.
func (m *Model) Print() string {
	m.assertPhase(phaseFinal, "print")
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", m.spec.Name)
	for _, root := range m.roots {
		m.printNode(&b, root.Type, 0)
	}
	return b.String()
}

func (m *Model) printNode(b *strings.Builder, t *dex.Type, depth int) {
	indent := strings.Repeat("  ", depth)
	node := m.nodes[t]

	switch {
	case node == nil:
		fmt.Fprintf(b, "%s+ %s\n", indent, t.Name())
	case node.IsMerger():
		fmt.Fprintf(b, "%s+ %s (%s, %d mergeables%s)\n",
			indent, t.Name(), node.Kind, node.MergeableCount(), m.dexSuffix(node))
		fmt.Fprintf(b, "%s  -* %s\n", indent, node.Shape.String())
		for _, group := range node.VirtualMethods {
			printMethodGroup(b, indent, group)
		}
		for _, group := range node.InterfaceMethods {
			printMethodGroup(b, indent, group)
		}
		for _, mergeable := range node.Mergeables.Types() {
			fmt.Fprintf(b, "%s  - %s\n", indent, mergeable.Name())
		}
	default:
		fmt.Fprintf(b, "%s+ %s (%s)\n", indent, t.Name(), node.Kind)
	}

	if m.rootSet.Contains(t) {
		// The root's own dispatch surface: every merger below inherits
		// these signatures, so they frame the method-group lines.
		for _, scope := range m.typeSystem.VirtualScopesRootedAt(t) {
			fmt.Fprintf(b, "%s  -^ %s (%d definitions)\n",
				indent, scope.Signature(), len(scope.Methods))
		}
	}

	if children, ok := m.hierarchy[t]; ok {
		for _, child := range children.Types() {
			m.printNode(b, child, depth+1)
		}
	}
}

// dexSuffix names the dex a per-dex merger is pinned to.
func (m *Model) dexSuffix(node *MergerType) string {
	if node.DexID == nil {
		return ""
	}
	return ", dex " + m.stores.DexName(*node.DexID)
}

func printMethodGroup(b *strings.Builder, indent string, group *MethodGroup) {
	kind := "shared"
	if group.Kind == DispatchByTypeTag {
		kind = "type-tag"
	}
	suffix := ""
	if group.Interface != nil {
		suffix = " intf=" + group.Interface.Name()
	}
	fmt.Fprintf(b, "%s  -# %s%s (%s, %d targets)%s\n",
		indent, group.Name, group.Proto, kind, len(group.Implementations), suffix)
}
