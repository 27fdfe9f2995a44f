package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"pdfchat/internal/domain"
	"pdfchat/internal/service"
	"pdfchat/internal/session"
)

// Session is the REPL-facing subset of session.Session.
type Session interface {
	Process(ctx context.Context, docs []domain.Document) (session.Report, error)
	Ask(ctx context.Context, question string) []domain.Turn
	History() []domain.Turn
	Reset()
	Ready() bool
}

const help = `Commands:
  :add <path|glob> ...  add PDF files to the upload list
  :uploads              show the upload list
  :process              process the upload list
  :reset                drop processed documents and history
  :history              show the conversation
  exit                  quit
Anything else is asked as a question.`

// REPL is a line-mode front end for terminals without full-screen support.
type REPL struct {
	sess    Session
	in      io.Reader
	out     io.Writer
	uploads []string

	user  func(a ...any) string
	reply func(a ...any) string
	warn  func(a ...any) string
	info  func(a ...any) string
}

// New creates a REPL reading commands from in and writing to out.
func New(sess Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		sess:  sess,
		in:    in,
		out:   out,
		user:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		reply: color.New(color.FgCyan, color.Bold).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		info:  color.New(color.Faint).SprintFunc(),
	}
}

// Run processes initial (if any) and then serves input lines until EOF, exit
// or ctx cancellation.
func (r *REPL) Run(ctx context.Context, initial []string) error {
	fmt.Fprintln(r.out, r.reply("PDF Chat"))
	fmt.Fprintln(r.out, r.info("Type :help for commands, 'exit' to quit."))
	if len(initial) > 0 {
		r.add(initial)
		r.process(ctx)
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, r.user("You: "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := scanner.Text()
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch strings.ToLower(cmd) {
		case "exit", "quit", ":q":
			return nil
		case ":help":
			fmt.Fprintln(r.out, help)
		case ":add":
			r.add(strings.Fields(arg))
		case ":uploads":
			r.listUploads()
		case ":process":
			r.process(ctx)
		case ":reset":
			r.sess.Reset()
			fmt.Fprintln(r.out, r.info("Session reset."))
		case ":history":
			r.history()
		case "":
			if line == "" {
				continue
			}
			r.ask(ctx, line)
		default:
			r.ask(ctx, line)
		}
	}
}

func (r *REPL) add(patterns []string) {
	found := service.ExpandPaths(patterns)
	if len(found) == 0 {
		fmt.Fprintln(r.out, r.warn("No PDF files match "+strings.Join(patterns, " ")))
		return
	}
	added := 0
	for _, p := range found {
		dup := false
		for _, u := range r.uploads {
			if u == p {
				dup = true
				break
			}
		}
		if !dup {
			r.uploads = append(r.uploads, p)
			added++
		}
	}
	fmt.Fprintln(r.out, r.info(fmt.Sprintf("Added %d file(s); %d in upload list.", added, len(r.uploads))))
}

func (r *REPL) listUploads() {
	if len(r.uploads) == 0 {
		fmt.Fprintln(r.out, r.info("Upload list is empty."))
		return
	}
	for _, u := range r.uploads {
		fmt.Fprintln(r.out, "  "+u)
	}
}

func (r *REPL) process(ctx context.Context) {
	if len(r.uploads) == 0 {
		fmt.Fprintln(r.out, r.warn(session.MsgNoDocuments))
		return
	}
	fmt.Fprintln(r.out, r.info(fmt.Sprintf("Processing %d file(s)...", len(r.uploads))))
	docs, err := service.LoadDocuments(r.uploads)
	if err == nil {
		var report session.Report
		report, err = r.sess.Process(ctx, docs)
		if err == nil {
			fmt.Fprintln(r.out, r.info(fmt.Sprintf("Processed %d document(s) into %d chunk(s).", report.Documents, report.Chunks)))
			if report.Summary != "" {
				fmt.Fprintln(r.out, r.info("Summary: "+report.Summary))
			}
			return
		}
	}
	if errors.Is(err, domain.ErrNoDocuments) {
		fmt.Fprintln(r.out, r.warn(session.MsgNoDocuments))
		return
	}
	fmt.Fprintln(r.out, r.warn("Error processing documents: "+err.Error()))
}

func (r *REPL) ask(ctx context.Context, question string) {
	if !r.sess.Ready() {
		fmt.Fprintln(r.out, r.warn(session.MsgNotProcessed))
		return
	}
	turns := r.sess.Ask(ctx, question)
	for _, t := range turns {
		if t.Role == domain.RoleAssistant {
			fmt.Fprintln(r.out, r.reply("Reply: ")+t.Content)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *REPL) history() {
	turns := r.sess.History()
	if len(turns) == 0 {
		fmt.Fprintln(r.out, r.info("No questions yet."))
		return
	}
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			fmt.Fprintln(r.out, r.user("User: ")+t.Content)
		case domain.RoleAssistant:
			fmt.Fprintln(r.out, r.reply("Reply: ")+t.Content)
		}
	}
}
