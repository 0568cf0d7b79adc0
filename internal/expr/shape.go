package expr

import (
	"fmt"

	"github.com/anhnt/edge/internal/errors"
)

// Grammatical names accepted by Reject.
const (
	AssignmentExpression = "AssignmentExpression"
	SequenceExpression   = "SequenceExpression"
)

// Reject reports an E_INVALID_EXPRESSION error when the top-level node of
// an argument is one of the disallowed types. The caller adds the position.
func Reject(node Node, tag string, disallowed ...string) *errors.EdgeError {
	name := TypeName(node)
	for _, d := range disallowed {
		if name == d {
			return errors.NewInvalidExpressionError(node.String(),
				fmt.Sprintf("%s is not supported by the @%s tag", name, tag))
		}
	}
	return nil
}

// Expect reports an E_INVALID_EXPRESSION error unless the top-level node is
// one of the allowed types.
func Expect(node Node, tag string, allowed ...string) *errors.EdgeError {
	name := TypeName(node)
	for _, a := range allowed {
		if name == a {
			return nil
		}
	}
	return errors.NewInvalidExpressionError(node.String(),
		fmt.Sprintf("%s is not supported by the @%s tag", name, tag))
}

// Args splits a top-level sequence into its expressions.
func Args(node Node) []Node {
	if seq, ok := node.(*Sequence); ok {
		return seq.Expressions
	}
	return []Node{node}
}
