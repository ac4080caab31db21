/*
Package app wires the document ledger: the transaction format, the
handler stack and the Ledger that executes transactions concurrently
against a commit store.
*/
package app

import (
	"github.com/iov-one/docseal"
	"github.com/iov-one/docseal/x/document"
	"github.com/iov-one/docseal/x/sigs"
	"github.com/iov-one/docseal/x/utils"
)

// Stack returns the handler of every transaction: logging, panic recovery
// and signature verification in front of the document routes.
func Stack() docseal.Handler {
	r := NewRouter()
	document.RegisterRoutes(r, sigs.Authenticate{})
	return ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		sigs.NewDecorator(),
	).WithHandler(r)
}

// Initializers returns the genesis initializer of all extensions.
func Initializers() docseal.Initializer {
	return ChainInitializers(
		document.Initializer{},
	)
}
