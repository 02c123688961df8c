// Package prompt reads run parameters interactively from a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/large-farva/footprint/internal/region"
)

// DateLayout is the accepted start date format.
const DateLayout = "2006-01-02"

// DefaultMaxAttempts bounds how often a single value is asked for.
const DefaultMaxAttempts = 3

// ErrTooManyAttempts is returned once a value has been rejected
// MaxAttempts times in a row.
var ErrTooManyAttempts = errors.New("too many invalid attempts")

// Prompter asks questions on Out and reads answers from In.
type Prompter struct {
	in          *bufio.Scanner
	out         io.Writer
	MaxAttempts int
}

// New returns a prompter with DefaultMaxAttempts.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out, MaxAttempts: DefaultMaxAttempts}
}

func (p *Prompter) attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// ask prints question, reads one line and hands it to accept. accept
// returns the message to show for a rejected answer, or "" to take it.
func (p *Prompter) ask(question string, accept func(string) string) error {
	for i := 0; i < p.attempts(); i++ {
		fmt.Fprint(p.out, question)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return err
			}
			return io.ErrUnexpectedEOF
		}
		msg := accept(strings.TrimSpace(p.in.Text()))
		if msg == "" {
			return nil
		}
		fmt.Fprintln(p.out, msg)
	}
	return ErrTooManyAttempts
}

// Date asks for the start date.
func (p *Prompter) Date() (time.Time, error) {
	var t time.Time
	err := p.ask("Enter the start date in YYYY-MM-DD format: ", func(s string) string {
		v, err := time.Parse(DateLayout, s)
		if err != nil {
			return "Invalid date format. Please enter the date in YYYY-MM-DD format."
		}
		t = v
		return ""
	})
	return t, err
}

// Corners asks for four rectangle corners, latitude then longitude each.
func (p *Prompter) Corners() ([4]region.Corner, error) {
	var c [4]region.Corner
	fmt.Fprintln(p.out, "Please enter the latitude and longitude for the four corners of the rectangle:")
	for i := range c {
		lat, err := p.degrees(fmt.Sprintf("Enter latitude for corner %d: ", i+1), 90)
		if err != nil {
			return c, err
		}
		lon, err := p.degrees(fmt.Sprintf("Enter longitude for corner %d: ", i+1), 180)
		if err != nil {
			return c, err
		}
		c[i] = region.Corner{Lat: lat, Lon: lon}
	}
	return c, nil
}

func (p *Prompter) degrees(question string, limit float64) (float64, error) {
	var v float64
	err := p.ask(question, func(s string) string {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Sprintf("Invalid number %q.", s)
		}
		if f < -limit || f > limit {
			return fmt.Sprintf("Value must be between %g and %g.", -limit, limit)
		}
		v = f
		return ""
	})
	return v, err
}
