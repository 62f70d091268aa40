package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/notmyname/logflow/internal/classify"
	"github.com/notmyname/logflow/internal/model"
	"github.com/notmyname/logflow/internal/timestamp"
)

// storageMarker is present in every storage access line (ident and user are
// always "-"). Lines without it are rejected before tokenizing.
const storageMarker = "- -"

// rawStorage holds the string fields of a storage line before conversion.
type rawStorage struct {
	remoteAddr string
	timeOpen   string
	timeClose  string
	method     string
	path       string
	status     string
	size       string
	txnID      string
	userAgent  string
	transTime  string
	pid        string
	policy     string
}

// storageExtractor converts storage lines to StorageRecords. The split
// function is the tokenizing strategy.
type storageExtractor struct {
	parser *timestamp.Parser
	canon  classify.Canon
	split  func(remainder string) (rawStorage, bool)
}

// NewFieldStorageExtractor tokenizes on whitespace and reads fields by position.
func NewFieldStorageExtractor(parser *timestamp.Parser, canon classify.Canon) Extractor {
	return &storageExtractor{parser: parser, canon: canon, split: splitStorageFields}
}

// NewRegexStorageExtractor matches the whole line against one pattern.
func NewRegexStorageExtractor(parser *timestamp.Parser, canon classify.Canon) Extractor {
	return &storageExtractor{parser: parser, canon: canon, split: splitStorageRegex}
}

func (e *storageExtractor) Extract(line model.ClassifiedLine) (model.ParsedRecord, model.SkipReason) {
	if !strings.Contains(line.Remainder, storageMarker) {
		return model.ParsedRecord{}, model.SkipNoStorageMarker
	}
	raw, ok := e.split(line.Remainder)
	if !ok {
		return model.ParsedRecord{}, model.SkipMalformed
	}

	status, err := strconv.Atoi(raw.status)
	if err != nil {
		return model.ParsedRecord{}, model.SkipBadNumber
	}
	duration, ok := parseDuration(raw.transTime)
	if !ok {
		return model.ParsedRecord{}, model.SkipBadNumber
	}
	end, ok := e.parser.ParseStorageTime(raw.timeOpen, raw.timeClose)
	if !ok {
		return model.ParsedRecord{}, model.SkipBadTimestamp
	}
	iv := timestamp.StorageInterval(end, duration)

	pid, err := strconv.Atoi(raw.pid)
	if err != nil {
		pid = line.PID
	}
	source, sourcePID := splitUserAgent(raw.userAgent)

	rec := &model.StorageRecord{
		ServerType:      line.ServerType,
		RemoteAddr:      raw.remoteAddr,
		Method:          raw.method,
		Path:            raw.path,
		Status:          status,
		SizeBytes:       atoi64OrZero(raw.size),
		TransactionID:   raw.txnID,
		Source:          e.canon.Name(source),
		SourcePID:       sourcePID,
		TransactionTime: duration,
		ServerPID:       pid,
		PolicyIndex:     int(atoi64OrZero(raw.policy)),
		DriveID:         DriveID(raw.path),
		StartEpoch:      iv.Start,
		EndEpoch:        iv.End,
	}
	return model.ParsedRecord{Kind: model.KindStorage, Storage: rec}, model.SkipNone
}

// DriveID returns the second "/"-separated segment of path, the device the
// request was served from. "/sda1/123/AUTH_a/c/o" yields "sda1".
func DriveID(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// splitUserAgent splits "proxy-server 1234" into daemon name and pid.
func splitUserAgent(ua string) (string, string) {
	ua = strings.TrimSpace(ua)
	i := strings.LastIndexByte(ua, ' ')
	if i < 0 {
		return ua, ""
	}
	pid := ua[i+1:]
	if _, err := strconv.Atoi(pid); err != nil {
		return ua, ""
	}
	return ua[:i], pid
}

// Minimum token count: remote - - [time zone] "METHOD path" status size
// referer txn "ua" trans_time "-" pid.
const minStorageTokens = 15

func splitStorageFields(remainder string) (rawStorage, bool) {
	tokens := strings.Fields(remainder)
	n := len(tokens)
	if n < minStorageTokens {
		return rawStorage{}, false
	}

	// The trailer is trans_time "-" pid, optionally followed by the policy index.
	var transIdx int
	var policy string
	switch {
	case tokens[n-3] == `"-"`:
		transIdx, policy = n-4, tokens[n-1]
	case tokens[n-2] == `"-"`:
		transIdx = n - 3
	default:
		return rawStorage{}, false
	}
	if transIdx < 12 {
		return rawStorage{}, false
	}

	method := tokens[5]
	path := tokens[6]
	if !strings.HasPrefix(method, `"`) || !strings.HasSuffix(path, `"`) {
		return rawStorage{}, false
	}

	// Referer, txn and user agent are quoted and the referer may hold a
	// space ("PUT http://..."), so count groups back from the trailer.
	groups := quotedGroups(strings.Join(tokens[9:transIdx], " "))
	if len(groups) < 3 {
		return rawStorage{}, false
	}

	return rawStorage{
		remoteAddr: tokens[0],
		timeOpen:   tokens[3],
		timeClose:  tokens[4],
		method:     strings.TrimPrefix(method, `"`),
		path:       strings.TrimSuffix(path, `"`),
		status:     tokens[7],
		size:       tokens[8],
		txnID:      groups[len(groups)-2],
		userAgent:  groups[len(groups)-1],
		transTime:  tokens[transIdx],
		pid:        tokens[transIdx+2],
		policy:     policy,
	}, true
}

// quotedGroups returns the contents of each "..." group in s. Text outside
// quotes is ignored. An unterminated group ends the scan.
func quotedGroups(s string) []string {
	var groups []string
	for {
		start := strings.IndexByte(s, '"')
		if start < 0 {
			return groups
		}
		end := strings.IndexByte(s[start+1:], '"')
		if end < 0 {
			return groups
		}
		groups = append(groups, s[start+1:start+1+end])
		s = s[start+end+2:]
	}
}

var storageRegex = regexp.MustCompile(strings.Join([]string{
	`^(\S+)\s-\s-\s`,   // remote_addr
	`\[(.*?)\]\s`,      // datetime
	`"(\S+)\s(.*?)"\s`, // method and path
	`(\d\d\d)\s`,       // status
	`(\S+)\s`,          // content length
	`".*?"\s`,          // referer
	`"(.*?)"\s`,        // txn id
	`"(.*?)"\s`,        // user agent
	`(\S+)\s`,          // transaction time
	`"-"\s`,            // additional info
	`(\d{1,6})`,        // server pid
	`(?:\s(\d+))?`,     // policy index
}, ""))

func splitStorageRegex(remainder string) (rawStorage, bool) {
	m := storageRegex.FindStringSubmatch(remainder)
	if m == nil {
		return rawStorage{}, false
	}
	open, closing, _ := strings.Cut(m[2], " ")
	return rawStorage{
		remoteAddr: m[1],
		timeOpen:   open,
		timeClose:  closing,
		method:     m[3],
		path:       m[4],
		status:     m[5],
		size:       m[6],
		txnID:      m[7],
		userAgent:  m[8],
		transTime:  m[9],
		pid:        m[10],
		policy:     m[11],
	}, true
}
