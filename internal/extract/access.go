package extract

import (
	"math"
	"strconv"
	"strings"

	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/timestamp"
)

// accessFieldCount is the number of whitespace tokens in a proxy access line.
const accessFieldCount = 21

// Token positions of the proxy access-log format.
const (
	accClientIP = iota
	accRemoteAddr
	accTimestamp
	accMethod
	accPath
	accProtocol
	accStatus
	accReferer
	accUserAgent
	accAuthToken
	accBytesRecvd
	accBytesSent
	accClientEtag
	accTransactionID
	accHeaders
	accRequestTime
	accSource
	accLogInfo
	accStartTime
	accEndTime
	accPolicyIndex
)

// AccessExtractor parses proxy-server access lines. Lines with the wrong
// token count fall through to the error and auth sub-grammars, since the
// proxy logs those under the same tag.
type AccessExtractor struct {
	parser *timestamp.Parser
}

// NewAccessExtractor creates an AccessExtractor.
func NewAccessExtractor(parser *timestamp.Parser) *AccessExtractor {
	return &AccessExtractor{parser: parser}
}

// Extract implements Extractor.
func (e *AccessExtractor) Extract(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason) {
	tokens := strings.Fields(line.Remainder)
	if len(tokens) != accessFieldCount {
		if rec, skip, ok := extractError(e.parser, line); ok {
			return rec, skip
		}
		if rec, skip := extractAuth(line); skip == model.SkipNone {
			return rec, skip
		}
		return model.ParsedRecord{}, model.SkipMalformed
	}

	status, err := strconv.Atoi(tokens[accStatus])
	if err != nil {
		return model.ParsedRecord{}, model.SkipBadNumber
	}
	requestTime, ok := parseDuration(tokens[accRequestTime])
	if !ok {
		return model.ParsedRecord{}, model.SkipBadNumber
	}
	start, ok := e.parser.ParseEpoch(tokens[accStartTime])
	if !ok {
		return model.ParsedRecord{}, model.SkipBadTimestamp
	}
	end, ok := e.parser.ParseEpoch(tokens[accEndTime])
	if !ok {
		return model.ParsedRecord{}, model.SkipBadTimestamp
	}

	rec := &model.AccessRecord{
		ClientIP:      tokens[accClientIP],
		RemoteAddr:    tokens[accRemoteAddr],
		Method:        tokens[accMethod],
		Path:          tokens[accPath],
		Protocol:      tokens[accProtocol],
		Status:        status,
		BytesRecvd:    atoi64OrZero(tokens[accBytesRecvd]),
		BytesSent:     atoi64OrZero(tokens[accBytesSent]),
		TransactionID: tokens[accTransactionID],
		RequestTime:   requestTime,
		Source:        tokens[accSource],
		StartEpoch:    start,
		EndEpoch:      end,
		PolicyIndex:   int(atoi64OrZero(tokens[accPolicyIndex])),
		ServerPID:     line.PID,
	}
	return model.ParsedRecord{Kind: model.KindAccess, Access: rec}, model.SkipNone
}

// atoi64OrZero parses cosmetic integer fields; "-" and garbage become 0.
func atoi64OrZero(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDuration parses a load-bearing float field. NaN and infinities are
// rejected along with garbage.
func parseDuration(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
