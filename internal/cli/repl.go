package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sjsage522/pagescope/internal/document"
	"sjsage522/pagescope/internal/session"
)

const replHelp = `Commands:
  class <name>     find elements by class
  id <name>        find the element with an id
  tag <name>       find elements by tag name
  css <selector>   find elements by CSS selector
  text             print the visible text
  info             print title and metadata
  census           print the tag census
  links            list links
  images           list images
  pretty           print the indented tree
  md               print the document as Markdown
  fetch <source>   load another URL or file
  save [file]      save the HTML
  shot [file]      save a screenshot (rendered backend)
  report [file]    save the analysis as JSON
  help             show this help
  quit             leave`

// repl is the line-oriented interactive loop. It only dispatches to the session.
type repl struct {
	s   *session.Session
	in  io.Reader
	out *printer
}

func newREPL(s *session.Session, in io.Reader, out io.Writer) *repl {
	return &repl{s: s, in: in, out: newPrinter(out)}
}

// Run reads commands until quit, end of input or cancellation. Input is
// read on its own goroutine so cancellation ends the loop even while a
// read is blocked.
func (r *repl) Run(ctx context.Context) error {
	r.out.line(`Interactive mode. Type "help" for commands.`)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out.w, "> ")

		var line string
		select {
		case <-ctx.Done():
			r.out.line("")
			return nil
		case l, ok := <-lines:
			if !ok {
				r.out.line("")
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		if cmd == "" {
			continue
		}
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			return nil
		}
		if err := r.dispatch(ctx, strings.ToLower(cmd), arg); err != nil {
			r.out.line("Error: " + err.Error())
		}
	}
}

func (r *repl) dispatch(ctx context.Context, cmd, arg string) error {
	switch cmd {
	case "help", "?":
		r.out.line(replHelp)
	case "class", "tag", "id", "css":
		if arg == "" {
			return fmt.Errorf("usage: %s <value>", cmd)
		}
		return r.find(cmd, arg)
	case "text":
		text, err := r.s.ExtractText()
		if err != nil {
			return err
		}
		r.out.line(text)
	case "info":
		info, err := r.s.PageInfo()
		if err != nil {
			return err
		}
		r.out.pageInfo(info)
	case "census":
		c, err := r.s.Census()
		if err != nil {
			return err
		}
		r.out.census(c)
	case "links":
		links, err := r.s.ExtractLinks(0)
		if err != nil {
			return err
		}
		r.out.links(links)
	case "images":
		images, err := r.s.ExtractImages(0)
		if err != nil {
			return err
		}
		r.out.images(images)
	case "pretty":
		p, err := r.s.PrettyPrint(0)
		if err != nil {
			return err
		}
		r.out.line(p.String())
	case "md":
		md, err := r.s.Markdown()
		if err != nil {
			return err
		}
		r.out.line(md)
	case "fetch":
		if arg == "" {
			return fmt.Errorf("usage: fetch <url-or-file>")
		}
		doc, err := r.s.Fetch(ctx, arg)
		if err != nil {
			return err
		}
		r.out.line(fmt.Sprintf("Loaded %s (%d characters)", doc.Source(), doc.ContentLength()))
	case "save":
		path, err := r.s.SaveRaw(arg)
		r.out.saved("HTML", path, err)
	case "shot":
		path, err := r.s.SaveSnapshot(ctx, arg)
		r.out.saved("Screenshot", path, err)
	case "report":
		path, err := r.s.SaveReport(arg)
		r.out.saved("Report", path, err)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (r *repl) find(cmd, arg string) error {
	var (
		els []document.Element
		err error
	)
	switch cmd {
	case "class":
		els, err = r.s.FindByClass(arg)
	case "tag":
		els, err = r.s.FindByTag(arg)
	case "css":
		els, err = r.s.FindBySelector(arg)
	case "id":
		var (
			el document.Element
			ok bool
		)
		el, ok, err = r.s.FindByID(arg)
		if ok {
			els = []document.Element{el}
		}
	}
	if err != nil {
		return err
	}
	r.out.elements(cmd+" "+arg, els)
	return nil
}
