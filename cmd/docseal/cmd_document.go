package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/iov-one/docseal/client"
	"github.com/iov-one/docseal/workflow"
)

func cmdCreate(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Create a document. The content is encrypted, uploaded and recorded on the
ledger. Content is read from -file or from the standard input.

The saga progress is printed when done. If it fails, continue it with the
resume command.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = keyFlag(fl, "creator key")
		titleFl   = fl.String("title", "", "Document title.")
		descFl    = fl.String("description", "", "Document description.")
		signersFl = fl.String("signers", "", "Comma separated addresses allowed to sign.")
		fileFl    = fl.String("file", "", "Content file. Standard input is used when empty.")
		remote    = addRemoteFlags(fl)
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	signers, err := parseAddresses(*signersFl)
	if err != nil {
		return err
	}
	content, err := readContent(input, *fileFl)
	if err != nil {
		return fmt.Errorf("cannot read content: %s", err)
	}

	return withSession(remote, func(ctx context.Context, s *session) error {
		p, err := s.orch.CreateDocument(ctx, key, workflow.CreateRequest{
			Title:       *titleFl,
			Description: *descFl,
			Signers:     signers,
			Content:     content,
		})
		return report(output, p, err)
	})
}

func cmdSign(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Sign a document. The signed version of the content is encrypted, uploaded,
appended to the document history and the signature is recorded. Content is
read from -file or from the standard input.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = keyFlag(fl, "signer key")
		docFl     = fl.String("doc", "", "Hex encoded document id.")
		fileFl    = fl.String("file", "", "Signed content file. Standard input is used when empty.")
		remote    = addRemoteFlags(fl)
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	docID, err := parseID("doc", *docFl)
	if err != nil {
		return err
	}
	content, err := readContent(input, *fileFl)
	if err != nil {
		return fmt.Errorf("cannot read content: %s", err)
	}

	return withSession(remote, func(ctx context.Context, s *session) error {
		p, err := s.orch.SignDocument(ctx, key, docID, content)
		return report(output, p, err)
	})
}

func cmdResume(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Continue an interrupted saga. Content is needed only when the saga failed
before its content was encrypted.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = keyFlag(fl, "key that started the saga")
		sagaFl    = fl.String("saga", "", "Saga id, as printed by the pending command.")
		fileFl    = fl.String("file", "", "Content file, if needed.")
		remote    = addRemoteFlags(fl)
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(*sagaFl)
	if err != nil {
		return fmt.Errorf("invalid saga id: %s", err)
	}
	var content []byte
	if *fileFl != "" {
		if content, err = readContent(input, *fileFl); err != nil {
			return fmt.Errorf("cannot read content: %s", err)
		}
	}

	return withSession(remote, func(ctx context.Context, s *session) error {
		p, err := s.orch.Resume(ctx, id[:], key, content)
		return report(output, p, err)
	})
}

func cmdPending(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
List unfinished sagas started with the key.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = keyFlag(fl, "private key")
		remote    = addRemoteFlags(fl)
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	return withSession(remote, func(ctx context.Context, s *session) error {
		pending, err := s.orch.Pending(key.PublicKey().Address())
		if err != nil {
			return err
		}
		for _, p := range pending {
			fmt.Fprintf(output, "%s\t%s\tafter %s\t%s\n", p.SagaID(), p.Saga, stageName(p.Stage), p.LastError)
		}
		return nil
	})
}

func cmdDecrypt(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Write the latest content of a document. Only the creator and the current
signers may decrypt it.
`)
		fl.PrintDefaults()
	}
	var (
		keyPathFl = keyFlag(fl, "private key")
		docFl     = fl.String("doc", "", "Hex encoded document id.")
		remote    = addRemoteFlags(fl)
	)
	fl.Parse(args)

	key, err := loadKey(*keyPathFl)
	if err != nil {
		return err
	}
	docID, err := parseID("doc", *docFl)
	if err != nil {
		return err
	}
	return withSession(remote, func(ctx context.Context, s *session) error {
		content, err := s.orch.Decrypt(ctx, key, docID)
		if err != nil {
			return err
		}
		_, err = output.Write(content)
		return err
	})
}

func cmdShow(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the ledger record of a document.
`)
		fl.PrintDefaults()
	}
	var (
		docFl    = fl.String("doc", "", "Hex encoded document id.")
		serverFl = fl.String("server", env("DOCSEAL_SERVER", "http://localhost:8000"), "Address of the docseald server.")
	)
	fl.Parse(args)

	docID, err := parseID("doc", *docFl)
	if err != nil {
		return err
	}
	doc, err := client.NewClient(*serverFl, nil).Document(context.Background(), docID)
	if err != nil {
		return err
	}
	return writeJSON(output, doc)
}

func withSession(f remoteFlags, fn func(context.Context, *session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), *f.timeout)
	defer cancel()
	s, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

// report prints the progress even when the saga failed, so the saga id is
// known to the user.
func report(out io.Writer, p *workflow.Progress, err error) error {
	if p != nil {
		if werr := writeJSON(out, sagaView{
			Saga:       p.SagaID(),
			Kind:       string(p.Saga),
			Stage:      stageName(p.Stage),
			DocumentID: fmt.Sprintf("%x", p.DocumentID),
			BlobRef:    p.BlobRef,
			Status:     p.Status,
		}); werr != nil {
			return werr
		}
	}
	return err
}

type sagaView struct {
	Saga       string `json:"saga"`
	Kind       string `json:"kind"`
	Stage      string `json:"stage"`
	DocumentID string `json:"document_id,omitempty"`
	BlobRef    string `json:"blob_ref,omitempty"`
	Status     string `json:"status,omitempty"`
}

func stageName(s workflow.Stage) string {
	if s == "" {
		return "start"
	}
	return string(s)
}
