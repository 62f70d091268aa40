package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/timestamp"
)

var (
	// errorRegex matches proxy backend errors such as
	// "ERROR with Object server 10.0.0.3:6200/sdb re: Trying to GET /v1/a/c/o: Timeout (10.0s)".
	errorRegex = regexp.MustCompile(`ERROR with (Container|Object|Account) server\b.*?\b([A-Za-z]*Timeout) \((\d+(?:\.\d+)?)s\)`)

	// authRegex matches token validation lines.
	authRegex = regexp.MustCompile(`User: (\S+) uses token (\S+) \(trans_id (\S+)\)`)
)

// extractError applies the error sub-grammar. ok is false when the line is
// not a backend error at all, so the caller may try another grammar.
func extractError(parser *timestamp.Parser, line model.ClassifiedLine) (rec model.ParsedRecord, skip model.SkipReason, ok bool) {
	if !strings.Contains(line.Remainder, "ERROR with ") {
		return model.ParsedRecord{}, model.SkipNone, false
	}
	m := errorRegex.FindStringSubmatch(line.Remainder)
	if m == nil {
		return model.ParsedRecord{}, model.SkipMalformed, true
	}
	// Connection timeouts say nothing about how long a request ran.
	if strings.Contains(m[2], "Connection") {
		return model.ParsedRecord{}, model.SkipConnectionTimeout, true
	}
	timeout, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return model.ParsedRecord{}, model.SkipBadNumber, true
	}
	logged, found := parser.ParseSyslog(line.Prefix)
	if !found {
		return model.ParsedRecord{}, model.SkipBadTimestamp, true
	}

	return model.ParsedRecord{
		Kind: model.KindError,
		Error: &model.ErrorRecord{
			Peer:        m[1],
			Timeout:     timeout,
			LoggedEpoch: logged,
			Epoch:       timestamp.ErrorEpoch(logged, timeout),
		},
	}, model.SkipNone, true
}

func extractAuth(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason) {
	m := authRegex.FindStringSubmatch(line.Remainder)
	if m == nil {
		return model.ParsedRecord{}, model.SkipMalformed
	}
	return model.ParsedRecord{
		Kind: model.KindAuth,
		Auth: &model.AuthRecord{
			User:          m[1],
			TransactionID: m[3],
		},
	}, model.SkipNone
}
