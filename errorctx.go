package logboot

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// errorChain renders a wrapped error as its message, the chain of messages
// (outermost -> root) and the root cause.
type errorChain struct {
	msg   string
	chain []string
	root  string
}

func (c errorChain) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message", c.msg).
		Strs("chain", c.chain).
		Str("root", c.root)
}

// marshalError is installed as zerolog.ErrorMarshalFunc. Errors without a
// cause render as their message; wrapped errors render their whole chain.
func marshalError(err error) interface{} {
	if err == nil {
		return nil
	}
	chain, root := buildErrorChain(err)
	if len(chain) < 2 {
		return err.Error()
	}
	return errorChain{msg: err.Error(), chain: chain, root: root}
}

// buildErrorChain walks err's causes depth first and returns the distinct
// messages from outermost to innermost plus the last one reached. Joined
// errors (Unwrap() []error) contribute every branch in order. Wrappers that
// only add a stack (same message as their cause) are collapsed. The walk is
// bounded.
func buildErrorChain(err error) (chain []string, root string) {
	const maxDepth = 50
	seen := map[string]bool{}
	pending := []error{err}

	for steps := 0; len(pending) > 0 && steps < maxDepth; steps++ {
		cur := pending[0]
		pending = pending[1:]
		if cur == nil {
			continue
		}
		if msg := cur.Error(); !seen[msg] {
			seen[msg] = true
			chain = append(chain, msg)
		}
		switch u := cur.(type) {
		case interface{ Unwrap() []error }:
			pending = append(append([]error(nil), u.Unwrap()...), pending...)
		case interface{ Unwrap() error }:
			pending = append([]error{u.Unwrap()}, pending...)
		}
	}
	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	return chain, root
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return emptyString
	}
	return strings.Join(chain, " -> ")
}

// errorContextLayer makes every Err() carry its stack (for errors built with
// github.com/pkg/errors) and its cause chain.
func errorContextLayer() layer {
	return layer{
		name: "error-context",
		decorate: func(c zerolog.Context) zerolog.Context {
			return c.Stack()
		},
		install: func() {
			zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
			zerolog.ErrorMarshalFunc = marshalError
		},
	}
}
