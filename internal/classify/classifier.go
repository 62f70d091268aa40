// Package classify strips syslog framing from Swift log lines and
// identifies the emitting host and daemon.
package classify

import (
	"strconv"
	"strings"

	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/timestamp"
)

// Canon maps a raw syslog tag to its canonical server type.
type Canon map[string]model.ServerType

// DefaultCanon is the table used for concurrency and latency analysis.
var DefaultCanon = Canon{
	"proxy-server":         model.ServerProxy,
	"object-server":        model.ServerObject,
	"obj-server":           model.ServerObject,
	"container-server":     model.ServerContainer,
	"account-server":       model.ServerAccount,
	"container-reconciler": model.ServerContainerReconciler,
	"swift":                model.ServerSwift,
	"auth":                 model.ServerAuth,
}

// GraphCanon additionally folds the generic "swift" tag into the
// container reconciler, which is what emits it on storage nodes.
var GraphCanon = func() Canon {
	c := make(Canon, len(DefaultCanon))
	for k, v := range DefaultCanon {
		c[k] = v
	}
	c["swift"] = model.ServerContainerReconciler
	return c
}()

// Lookup canonicalizes tag. Unlisted tags map to ServerUnknown.
func (c Canon) Lookup(tag string) model.ServerType {
	if t, ok := c[tag]; ok {
		return t
	}
	return model.ServerUnknown
}

// Name canonicalizes a daemon name appearing inside a record (for example
// the user-agent of a storage line), keeping unlisted names unchanged.
func (c Canon) Name(name string) string {
	if t, ok := c[name]; ok {
		return string(t)
	}
	return name
}

// Options configures a Classifier.
type Options struct {
	// PrefixWidth strips exactly this many leading characters. Zero
	// auto-detects the syslog timestamp token.
	PrefixWidth int
	Canon       Canon
}

// Classifier splits raw lines into a ClassifiedLine.
type Classifier struct {
	prefixWidth int
	canon       Canon
}

// New creates a Classifier. A nil Canon selects DefaultCanon.
func New(opts Options) *Classifier {
	canon := opts.Canon
	if canon == nil {
		canon = DefaultCanon
	}
	width := opts.PrefixWidth
	if width < 0 {
		width = 0
	}
	return &Classifier{prefixWidth: width, canon: canon}
}

// Canon returns the canonicalization table in use.
func (c *Classifier) Canon() Canon { return c.canon }

// Classify strips the syslog prefix from line and identifies its source.
// It never fails hard: anything it cannot make sense of is reported through
// the returned SkipReason.
func (c *Classifier) Classify(line string) (model.ClassifiedLine, model.SkipReason) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return model.ClassifiedLine{}, model.SkipComment
	}

	prefix, rest, prefixHost := c.splitPrefix(trimmed)

	identity, remainder, ok := strings.Cut(rest, ": ")
	if !ok {
		return model.ClassifiedLine{}, model.SkipUnrecognized
	}

	var host, tag string
	fields := strings.Fields(identity)
	switch {
	case len(fields) >= 2:
		host, tag = fields[0], fields[len(fields)-1]
	case len(fields) == 1 && prefixHost != "":
		host, tag = prefixHost, fields[0]
	default:
		return model.ClassifiedLine{}, model.SkipUnrecognized
	}

	tag, pid := splitPID(tag)
	st := c.canon.Lookup(tag)
	out := model.ClassifiedLine{
		SourceHost: host,
		ServerType: st,
		ServerTag:  tag,
		PID:        pid,
		Prefix:     prefix,
		Remainder:  strings.TrimSpace(remainder),
	}
	if st == model.ServerUnknown {
		return out, model.SkipUnknownServer
	}
	return out, model.SkipNone
}

// splitPrefix returns the stripped prefix, the rest of the line, and the
// host name when a fixed-width prefix swallowed it.
func (c *Classifier) splitPrefix(line string) (prefix, rest, host string) {
	tsLen := timestamp.SyslogPrefixLen(line)

	if c.prefixWidth == 0 {
		if tsLen == 0 {
			return "", line, ""
		}
		return line[:tsLen], strings.TrimLeft(line[tsLen:], " \t"), ""
	}

	if len(line) <= c.prefixWidth {
		return line, "", ""
	}
	prefix, rest = line[:c.prefixWidth], line[c.prefixWidth:]
	if tsLen > 0 && c.prefixWidth > tsLen {
		host = strings.TrimSpace(prefix[tsLen:])
	}
	return prefix, rest, host
}

// splitPID splits "proxy-server[1234]" into its name and pid.
func splitPID(tag string) (string, int) {
	open := strings.IndexByte(tag, '[')
	if open <= 0 || !strings.HasSuffix(tag, "]") {
		return tag, 0
	}
	pid, err := strconv.Atoi(tag[open+1 : len(tag)-1])
	if err != nil {
		return tag, 0
	}
	return tag[:open], pid
}
