package buildgraph

import (
	"github.com/fontgraph/build/pkg/artifact"
	"github.com/fontgraph/build/pkg/bgerr"
	"github.com/fontgraph/build/pkg/operation"
)

// Step is one link in a recipe's operation chain: an operation, plus an
// optional override of the artifact name flowing in at this point (used
// only when this step is the first one in the chain, replacing the
// source_name default).
type Step struct {
	InputOverride *string
	Op            operation.Operation
}

// AddPath constructs a linear chain from the shared Source sentinel through
// the given operations to a fresh Sink representing sinkName, coalescing
// equivalent sub-paths and inserting kind converters as needed. It returns
// the ordered list of operation node IDs (converter nodes are not included).
func (g *Graph) AddPath(sourceName string, steps []Step, sinkName string) ([]NodeID, error) {
	if len(steps) == 0 {
		return nil, bgerr.New(bgerr.InvalidRecipe, "AddPath requires at least one operation")
	}

	cursor := g.sourceID
	var broadcast *artifact.Artifact
	var currentKind operation.DataKind

	var result []NodeID

	for i, step := range steps {
		op := step.Op

		// Step 1: determine the incoming artifact for this step.
		if cursor == g.sourceID {
			switch {
			case step.InputOverride != nil:
				broadcast = artifact.NewNamedFile(*step.InputOverride)
				currentKind = operation.Path
			case i == 0:
				broadcast = artifact.NewNamedFile(sourceName)
				currentKind = operation.Path
			default:
				want := firstKind(op.InputKinds())
				broadcast = newPlaceholder(want)
				currentKind = want
			}
		} else if existing := g.OutEdges(cursor); len(existing) > 0 {
			// Reuse: all downstream edges leaving a node must carry the
			// same artifact instance (broadcast), so a new fan-out reader
			// sees the same produced value.
			broadcast = existing[0].Output
			currentKind = g.outputKindOf(cursor)
		} else {
			outKind := g.outputKindOf(cursor)
			broadcast = newPlaceholder(outKind)
			currentKind = outKind
		}

		// Step 2: insert a conversion node if the op's declared input kind
		// mismatches what's flowing in.
		want := firstKind(op.InputKinds())
		if want != operation.Any && want != currentKind {
			convNode, ok := g.converterFor(currentKind, want)
			if ok {
				existingConv := g.findOutgoingConverter(cursor, convNode)
				var convID NodeID
				if existingConv != nil {
					convID = existingConv.To
				} else {
					convID = g.addNode(NodeOperation, convNode, "")
					g.addEdge(cursor, convID, broadcast, 0)
				}
				cursor = convID
				if outs := g.OutEdges(cursor); len(outs) > 0 {
					broadcast = outs[0].Output
				} else {
					broadcast = newPlaceholder(want)
				}
				currentKind = want
			}
			// else: no converter registered for this kind pair; construction
			// proceeds silently and the operation receives the Artifact as
			// it is. Nothing checks the kind at execution time; an operation
			// fails only if it cannot use that Artifact (e.g. ShellOp reports
			// WrongInputs when its input cannot be given a filename).
		}

		// Step 3: coalesce or add the operation node.
		var target NodeID
		reused := false
		if existingEdge := g.findOutgoingOperation(cursor, op); existingEdge != nil {
			if cursor != g.sourceID || existingEdge.Output.Equal(broadcast) {
				target = existingEdge.To
				reused = true
			}
		}
		if !reused {
			target = g.addNode(NodeOperation, op, "")
			g.addEdge(cursor, target, broadcast, 0)
		}
		cursor = target

		// Advance current_kind for the next iteration: the node's declared
		// output kind, unless Any (in which case the prior kind persists,
		// i.e. a pass-through operation).
		if outKind := g.outputKindOf(cursor); outKind != operation.Any {
			currentKind = outKind
		}

		result = append(result, cursor)
	}

	// Terminal sink handling: the sink filename becomes authoritative.
	sinkArtifact := artifact.NewNamedFile(sinkName)
	for _, e := range g.OutEdges(cursor) {
		e.Output = sinkArtifact
	}
	sinkID := g.addNode(NodeSink, operation.NewSink(sinkName), sinkName)
	g.addEdge(cursor, sinkID, sinkArtifact, 0)
	g.targetNodes[sinkName] = cursor

	return result, nil
}

// converterFor returns a fresh converter Operation instance for the given
// kind transition, and whether one is registered.
func (g *Graph) converterFor(from, to operation.DataKind) (operation.Operation, bool) {
	switch {
	case from == operation.Path && to == operation.Bytes:
		return operation.NewPathToBytesConverter(), true
	case from == operation.Bytes && to == operation.Path:
		return operation.NewBytesToPathConverter(), true
	default:
		return nil, false
	}
}

// findOutgoingConverter looks for an existing outgoing edge from node whose
// target is a converter node of the same shortname as proto.
func (g *Graph) findOutgoingConverter(node NodeID, proto operation.Operation) *Edge {
	for _, e := range g.OutEdges(node) {
		dst := g.Node(e.To)
		if dst != nil && dst.Op != nil && dst.Op.Shortname() == proto.Shortname() {
			return e
		}
	}
	return nil
}

// findOutgoingOperation looks for an existing outgoing edge from node whose
// target's operation has the same Identifier as op (equality of operations
// for coalescing purposes is by identifier, not by instance).
func (g *Graph) findOutgoingOperation(node NodeID, op operation.Operation) *Edge {
	for _, e := range g.OutEdges(node) {
		dst := g.Node(e.To)
		if dst != nil && dst.Kind == NodeOperation && dst.Op != nil && dst.Op.Identifier() == op.Identifier() {
			return e
		}
	}
	return nil
}

func firstKind(kinds []operation.DataKind) operation.DataKind {
	if len(kinds) == 0 {
		return operation.Any
	}
	return kinds[0]
}

// AddDependency wires a cross-target dependency: the artifact produced by
// the recorded producer of targetName must also flow into dependentNode at
// inputSlot, and any Sink edge for targetName is re-routed to emerge from
// dependentNode instead.
func (g *Graph) AddDependency(targetName string, dependentNode NodeID, inputSlot int) error {
	producer, ok := g.targetNodes[targetName]
	if !ok {
		return bgerr.Newf(bgerr.InvalidRecipe, "add_dependency: unknown target %q", targetName)
	}

	var producerOutput *artifact.Artifact
	if edges := g.OutEdges(producer); len(edges) > 0 {
		producerOutput = edges[0].Output
	} else {
		producerOutput = artifact.NewNamedFile(targetName)
	}

	g.addEdge(producer, dependentNode, producerOutput, inputSlot)

	var toReroute []*Edge
	for _, e := range g.OutEdges(producer) {
		if e.To == dependentNode {
			continue
		}
		dst := g.Node(e.To)
		if dst == nil || dst.Kind != NodeSink {
			continue
		}
		if path, ok := e.Output.NamedFilePath(); ok && path == targetName {
			toReroute = append(toReroute, e)
		}
	}

	for _, e := range toReroute {
		sinkID := e.To
		output := e.Output
		g.removeEdge(e)
		g.addEdge(dependentNode, sinkID, output, inputSlot)
	}

	return nil
}
