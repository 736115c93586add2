package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/a7exd/cheap-flights-finder/internal/config"
	"github.com/a7exd/cheap-flights-finder/internal/gateway/notifier"
)

type StartupSummary struct {
	Env        string
	Passengers int
	Channels   []ChannelDetail
}

type ChannelDetail struct {
	Name   string
	Target string
}

func newStartupSummary(cfg *config.Config) *StartupSummary {
	n := cfg.Notify
	s := &StartupSummary{Env: cfg.App.Env, Passengers: n.Passengers}
	for _, name := range n.EnabledChannels() {
		detail := ChannelDetail{Name: name}
		switch name {
		case "sms":
			detail.Target = fmt.Sprintf("%s -> %s via %s", n.SMS.FromPhone, maskPhone(n.SMS.ToPhone), n.SMS.APIURL)
		case "email":
			detail.Target = fmt.Sprintf("%s -> %s via %s:%d", n.Email.From, n.Email.To, n.Email.Host, n.Email.Port)
		case "chat":
			detail.Target = "(not implemented)"
		}
		s.Channels = append(s.Channels, detail)
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "FLIGHT ALERT SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "  env:        %s\n", s.Env)
	fmt.Fprintf(w, "  passengers: %d\n", s.Passengers)
	fmt.Fprintln(w, "  channels:")
	if len(s.Channels) == 0 {
		fmt.Fprintln(w, "    (none)")
	}
	for _, ch := range s.Channels {
		fmt.Fprintf(w, "    - %-6s %s\n", ch.Name, ch.Target)
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// PrintResults writes one line per delivery result to stdout.
func PrintResults(results []notifier.Result) {
	FprintResults(os.Stdout, results)
}

func FprintResults(w io.Writer, results []notifier.Result) {
	for _, res := range results {
		line := fmt.Sprintf("[%s] %-6s %s", res.Status, res.Channel, res.Elapsed.Round(time.Millisecond))
		if res.Err != nil {
			line += " " + res.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
