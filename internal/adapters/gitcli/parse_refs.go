package gitcli

import (
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// referenceFormat is the --format used with "git for-each-ref": the full
// name, the object it names, and the peeled commit for annotated tags.
const referenceFormat = "%(refname)%00%(objectname)%00%(*objectname)"

const referenceListFormat = "for-each-ref"

// ReferenceParser accumulates references from for-each-ref lines.
type ReferenceParser struct {
	records []domain.ReferenceData
	index   int
	err     error
}

// Feed parses one line.
func (p *ReferenceParser) Feed(line string) {
	if p.err != nil {
		return
	}
	i := p.index
	p.index++
	if strings.TrimSpace(line) == "" {
		return
	}
	ref, err := parseReferenceLine(i, line)
	if err != nil {
		p.err = err
		return
	}
	p.records = append(p.records, ref)
}

// Records returns the parsed references or the first parse error.
func (p *ReferenceParser) Records() ([]domain.ReferenceData, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.records, nil
}

// ParseReferences parses complete for-each-ref output.
func ParseReferences(data string) ([]domain.ReferenceData, error) {
	var p ReferenceParser
	for _, line := range strings.Split(data, "\n") {
		p.Feed(strings.TrimSuffix(line, "\r"))
	}
	return p.Records()
}

func parseReferenceLine(index int, line string) (domain.ReferenceData, error) {
	fields := strings.Split(line, "\x00")
	if len(fields) != 3 {
		return domain.ReferenceData{}, domain.NewParseError(referenceListFormat, index,
			"expected 3 fields, got "+strconv.Itoa(len(fields)))
	}
	name, object, peeled := fields[0], fields[1], fields[2]
	if !strings.HasPrefix(name, "refs/") {
		return domain.ReferenceData{}, domain.NewParseError(referenceListFormat, index,
			"malformed reference name "+strconv.Quote(name))
	}
	if !plumbing.IsHash(object) {
		return domain.ReferenceData{}, domain.NewParseError(referenceListFormat, index,
			"malformed object hash "+strconv.Quote(object))
	}
	if peeled != "" && !plumbing.IsHash(peeled) {
		return domain.ReferenceData{}, domain.NewParseError(referenceListFormat, index,
			"malformed peeled hash "+strconv.Quote(peeled))
	}

	ref := domain.ReferenceData{
		FullName:   name,
		Type:       ClassifyReference(name),
		Hash:       object,
		ObjectHash: object,
	}
	if peeled != "" {
		ref.Hash = peeled
	}
	return ref, nil
}

// ClassifyReference derives the reference type from its full name.
func ClassifyReference(fullName string) domain.ReferenceType {
	name := plumbing.ReferenceName(fullName)
	switch {
	case name.IsBranch():
		return domain.ReferenceTypeLocalBranch
	case name.IsRemote():
		return domain.ReferenceTypeRemoteBranch
	case name.IsTag():
		return domain.ReferenceTypeTag
	default:
		return domain.ReferenceTypeOther
	}
}
