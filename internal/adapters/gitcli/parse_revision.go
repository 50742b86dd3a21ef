package gitcli

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// revisionFormat is the --format used with "git log -z". Header fields are
// newline separated; the body comes last because it may span lines.
// Fields: hash, tree, parents, author name, author email, author time,
// committer name, committer email, committer time, subject, body.
const revisionFormat = "%H%n%T%n%P%n%an%n%ae%n%at%n%cn%n%ce%n%ct%n%s%n%b"

const (
	revisionHeaderFields = 10
	revisionLogFormat    = "log -z"
)

// RevisionParser accumulates revisions from NUL-separated log records as
// they stream in. After the first malformed record it ignores the rest.
type RevisionParser struct {
	records []domain.RevisionData
	index   int
	err     error
}

// Feed parses one record.
func (p *RevisionParser) Feed(record string) {
	if p.err != nil {
		return
	}
	i := p.index
	p.index++
	record = strings.TrimLeft(record, "\n")
	if strings.TrimSpace(record) == "" {
		return
	}
	rev, err := parseRevisionRecord(i, record)
	if err != nil {
		p.err = err
		return
	}
	p.records = append(p.records, rev)
}

// Records returns the parsed revisions or the first parse error.
func (p *RevisionParser) Records() ([]domain.RevisionData, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.records, nil
}

// ParseRevisions parses complete "git log -z --format=<revisionFormat>" output.
func ParseRevisions(data string) ([]domain.RevisionData, error) {
	var p RevisionParser
	for _, rec := range strings.Split(data, "\x00") {
		p.Feed(rec)
	}
	return p.Records()
}

// ParseRevision parses the output of a single-revision query.
func ParseRevision(data string) (domain.RevisionData, error) {
	revs, err := ParseRevisions(data)
	if err != nil {
		return domain.RevisionData{}, err
	}
	if len(revs) != 1 {
		return domain.RevisionData{}, domain.NewParseError(revisionLogFormat, -1,
			"expected exactly one revision, got "+strconv.Itoa(len(revs)))
	}
	return revs[0], nil
}

func parseRevisionRecord(index int, record string) (domain.RevisionData, error) {
	fields := strings.SplitN(record, "\n", revisionHeaderFields+1)
	if len(fields) < revisionHeaderFields {
		return domain.RevisionData{}, domain.NewParseError(revisionLogFormat, index,
			"expected "+strconv.Itoa(revisionHeaderFields)+" header fields, got "+strconv.Itoa(len(fields)))
	}
	fail := func(reason string) (domain.RevisionData, error) {
		return domain.RevisionData{}, domain.NewParseError(revisionLogFormat, index, reason)
	}

	if !plumbing.IsHash(fields[0]) {
		return fail("malformed commit hash " + strconv.Quote(fields[0]))
	}
	if !plumbing.IsHash(fields[1]) {
		return fail("malformed tree hash " + strconv.Quote(fields[1]))
	}
	parents := strings.Fields(fields[2])
	for _, h := range parents {
		if !plumbing.IsHash(h) {
			return fail("malformed parent hash " + strconv.Quote(h))
		}
	}
	authorDate, err := parseUnixTime(fields[5])
	if err != nil {
		return fail("malformed author time " + strconv.Quote(fields[5]))
	}
	commitDate, err := parseUnixTime(fields[8])
	if err != nil {
		return fail("malformed commit time " + strconv.Quote(fields[8]))
	}

	rev := domain.RevisionData{
		Hash:       fields[0],
		TreeHash:   fields[1],
		Parents:    parents,
		Author:     domain.UserData{Name: fields[3], Email: fields[4]},
		AuthorDate: authorDate,
		Committer:  domain.UserData{Name: fields[6], Email: fields[7]},
		CommitDate: commitDate,
		Subject:    fields[9],
	}
	if len(fields) > revisionHeaderFields {
		rev.Body = strings.TrimRight(fields[10], "\n")
	}
	return rev, nil
}

func parseUnixTime(s string) (time.Time, error) {
	sec, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
