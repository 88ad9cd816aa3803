package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/domain"
)

// NewPlayCmd runs a quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := loadRuntime(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			controller := rt.controller(ctx)
			defer controller.Close()

			return newPlayer(controller, cmd.OutOrStdout()).run(ctx, readLines(cmd.InOrStdin()))
		},
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// player renders controller status and turns input lines into actions.
type player struct {
	ctrl     *app.Controller
	out      io.Writer
	rendered string
	awaiting bool
}

func newPlayer(ctrl *app.Controller, out io.Writer) *player {
	return &player{ctrl: ctrl, out: out}
}

func (p *player) run(ctx context.Context, lines <-chan string) error {
	updates, cancel := p.ctrl.Store().Subscribe()
	defer cancel()
	ticks, cancelTicks := p.ctrl.Timer().Subscribe()
	defer cancelTicks()

	fmt.Fprintln(p.out, "loading questions...")
	if err := p.ctrl.Start(ctx); errors.Is(err, domain.ErrNotLoggedIn) {
		return fmt.Errorf("%w: run `trivia-quiz login <name>` first", err)
	}
	p.render()

	for {
		// Input typed while the feedback delay runs waits for the next question.
		var input <-chan string
		if p.awaiting {
			input = lines
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out, "\nprogress saved, run play again to resume")
			return nil
		case <-updates:
			p.render()
		case v := <-ticks:
			if p.ctrl.Status().Phase == app.PhasePlaying {
				fmt.Fprintf(p.out, "\r[%s] > ", domain.FormatClock(v))
			}
		case line, ok := <-input:
			if !ok {
				return nil
			}
			if quit := p.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (p *player) handle(ctx context.Context, line string) bool {
	st := p.ctrl.Status()
	switch {
	case line == "q":
		return true
	case st.Phase == app.PhasePlaying:
		p.answer(st.Session, line)
	case st.Phase == app.PhaseFinished && line == "n":
		p.awaiting = false
		if err := p.ctrl.NewSession(ctx); err != nil {
			p.rendered = ""
		}
		p.render()
	case (st.Phase == app.PhaseError || st.Phase == app.PhaseIdle) && line == "r":
		p.awaiting = false
		if err := p.ctrl.Retry(ctx); err != nil {
			p.rendered = ""
		}
		p.render()
	default:
		fmt.Fprintln(p.out, "unknown choice")
	}
	return false
}

func (p *player) answer(session domain.Session, line string) {
	q, ok := session.Current()
	if !ok {
		return
	}
	choices := q.Choices()
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(choices) {
		fmt.Fprintf(p.out, "pick a number between 1 and %d\n", len(choices))
		return
	}

	result, err := p.ctrl.Answer(choices[n-1])
	if err != nil {
		fmt.Fprintf(p.out, "answer not recorded: %v\n", err)
		return
	}
	p.awaiting = false
	if result.Correct {
		fmt.Fprintln(p.out, "correct!")
	} else {
		fmt.Fprintf(p.out, "wrong, the answer was %s\n", result.CorrectAnswer)
	}
}

// render prints the screen for the current phase once per question or phase change.
func (p *player) render() {
	st := p.ctrl.Status()
	key := fmt.Sprintf("%s/%s/%d", st.Phase, st.Session.ID, st.Session.CurrentIndex)
	if key == p.rendered {
		return
	}
	p.rendered = key

	switch st.Phase {
	case app.PhasePlaying:
		q, ok := st.Session.Current()
		if !ok {
			return
		}
		fmt.Fprintf(p.out, "\nQuestion %d of %d  [%s]\n", st.Session.CurrentIndex+1, len(st.Session.Questions), domain.FormatClock(st.Remaining))
		fmt.Fprintf(p.out, "%s (%s)\n", q.Category, q.Difficulty)
		fmt.Fprintln(p.out, q.Prompt)
		for i, choice := range q.Choices() {
			fmt.Fprintf(p.out, "  %d) %s\n", i+1, choice)
		}
		fmt.Fprint(p.out, "> ")
		p.awaiting = true
	case app.PhaseFinished:
		fmt.Fprintln(p.out, "\nquiz finished")
		printSummary(p.out, domain.Summarize(st.Session))
		fmt.Fprintln(p.out, "n) new session  q) quit")
		p.awaiting = true
	case app.PhaseError:
		fmt.Fprintf(p.out, "could not load questions: %v\n", st.Err)
		fmt.Fprintln(p.out, "r) retry  q) quit")
		p.awaiting = true
	case app.PhaseLoading:
		p.awaiting = false
	default:
		fmt.Fprintln(p.out, "no active session")
		fmt.Fprintln(p.out, "r) load questions  q) quit")
		p.awaiting = true
	}
}

func printSummary(out io.Writer, s domain.Summary) {
	fmt.Fprintf(out, "score:      %d / %d (%d%%)\n", s.Correct, s.Total, s.Percent)
	fmt.Fprintf(out, "correct:    %d\n", s.Correct)
	fmt.Fprintf(out, "wrong:      %d\n", s.Wrong)
	fmt.Fprintf(out, "unanswered: %d\n", s.Unanswered)
}
