package tools

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/osint-cli/internal/config"
	"github.com/sells-group/osint-cli/internal/model"
	"github.com/sells-group/osint-cli/internal/services"
)

const maxStderr = 2000

// CommandRunner runs an external command to completion. A non-zero exit
// is reported through exitCode, not err; err is reserved for commands that
// could not start or were cancelled.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return stdout.Bytes(), stderr.Bytes(), -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return nil, nil, -1, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

// markerLine matches "[+] site", "[-] site", and "[x] site".
var markerLine = regexp.MustCompile(`^\[(\+|\-|x)\]\s+(.+)$`)

// enumeration is the parsed outcome of one account-enumeration run.
type enumeration struct {
	usedLabels  []string
	usedIDs     []string
	rateLimited []string
	checked     int
}

func parseEnumeration(out []byte, table *services.Table) enumeration {
	e := enumeration{usedLabels: []string{}, usedIDs: []string{}, rateLimited: []string{}}
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		m := markerLine.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		status, label := m[1], strings.TrimSpace(m[2])
		// holehe prints a legend using the same markers
		if strings.HasPrefix(strings.ToLower(label), "email used") {
			continue
		}
		id, host, ok := table.Canonicalize(label)
		if !ok {
			continue
		}
		e.checked++
		switch status {
		case "+":
			if !slices.Contains(e.usedIDs, id) {
				e.usedIDs = append(e.usedIDs, id)
				e.usedLabels = append(e.usedLabels, host)
			}
		case "x":
			if !slices.Contains(e.rateLimited, id) {
				e.rateLimited = append(e.rateLimited, id)
			}
		}
	}
	return e
}

// enumerator runs an enumeration CLI, falling back to "python3 -m <mod>"
// when the binary is missing.
type enumerator struct {
	base
	runner  CommandRunner
	table   *services.Table
	binary  string
	module  string
	timeout time.Duration
	now     func() time.Time
}

func (e *enumerator) run(ctx context.Context, subject map[string]any, args ...string) model.ToolResult {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	started := e.now()
	cmds := [][]string{
		append([]string{e.binary}, args...),
		append([]string{"python3", "-m", e.module}, args...),
	}

	var (
		stdout, stderr []byte
		code           = 1
		used           string
		ran            bool
	)
	for _, cmd := range cmds {
		used = strings.Join(cmd, " ")
		out, errOut, rc, err := e.runner.Run(ctx, cmd[0], cmd[1:]...)
		if ctx.Err() == context.DeadlineExceeded {
			return e.fail("timeout", with(subject, "command_used", used))
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return e.fail("execution failed: "+err.Error(), subject)
		}
		stdout, stderr, code, ran = out, errOut, rc, true
		if rc == 0 || len(stdout) > 0 {
			break
		}
	}

	if !ran {
		return e.fail("not_installed", with(subject, "command_used", strings.Join(cmds[0], " ")))
	}

	parsed := parseEnumeration(stdout, e.table)
	raw := with(subject,
		"schema_version", "1.0",
		"used_services", parsed.usedLabels,
		"used_service_ids", parsed.usedIDs,
		"rate_limited_service_ids", parsed.rateLimited,
		"checked_count", parsed.checked,
		"command_used", used,
		"started_at", started.Unix(),
		"finished_at", e.now().Unix(),
	)
	if code != 0 && len(parsed.usedIDs) == 0 && len(parsed.rateLimited) == 0 {
		raw["warning"] = e.binary + " exited non-zero"
		if s := strings.TrimSpace(string(stderr)); s != "" {
			if len(s) > maxStderr {
				s = s[:maxStderr]
			}
			raw["stderr"] = s
		}
	}
	return model.NewResult(e.source, raw)
}

// with returns a copy of m with the key/value pairs added.
func with(m map[string]any, kv ...any) map[string]any {
	out := make(map[string]any, len(m)+len(kv)/2)
	for k, v := range m {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

// Holehe enumerates sites where params.email is registered.
type Holehe struct {
	enumerator
}

// NewHolehe creates the Holehe tool.
func NewHolehe(runner CommandRunner, table *services.Table, cfg config.CLIConfig) *Holehe {
	bin := cfg.Binary
	if bin == "" {
		bin = "holehe"
	}
	return &Holehe{enumerator{
		base:    base{name: NameHolehe, source: SourceHolehe, stage: model.StageShallow},
		runner:  runner,
		table:   table,
		binary:  bin,
		module:  "holehe",
		timeout: cfg.Timeout,
		now:     time.Now,
	}}
}

// CanHandle requires an email.
func (t *Holehe) CanHandle(p model.Params) bool {
	return p.Has(model.FieldEmail)
}

// Execute runs holehe against the email.
func (t *Holehe) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	email := p.String(model.FieldEmail)
	return t.run(ctx, map[string]any{"email": email}, email), nil
}

// Ignorant enumerates sites where params.phone is registered.
type Ignorant struct {
	enumerator
}

// NewIgnorant creates the Ignorant tool.
func NewIgnorant(runner CommandRunner, table *services.Table, cfg config.CLIConfig) *Ignorant {
	bin := cfg.Binary
	if bin == "" {
		bin = "ignorant"
	}
	return &Ignorant{enumerator{
		base:    base{name: NameIgnorant, source: SourceIgnorant, stage: model.StageShallow},
		runner:  runner,
		table:   table,
		binary:  bin,
		module:  "ignorant",
		timeout: cfg.Timeout,
		now:     time.Now,
	}}
}

// CanHandle requires a phone.
func (t *Ignorant) CanHandle(p model.Params) bool {
	return p.Has(model.FieldPhone)
}

// Execute splits the phone into country code and national number and runs
// ignorant.
func (t *Ignorant) Execute(ctx context.Context, p model.Params) (model.ToolResult, error) {
	raw := p.String(model.FieldPhone)
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return t.fail("invalid_phone", map[string]any{"schema_version": "1.0", "phone": raw}), nil
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	cc := strconv.Itoa(int(num.GetCountryCode()))
	national := strconv.FormatUint(num.GetNationalNumber(), 10)

	subject := map[string]any{
		"phone":           e164,
		"country_code":    cc,
		"national_number": national,
	}
	return t.run(ctx, subject, cc, national), nil
}
