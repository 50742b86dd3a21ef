// Package output renders command results as text or YAML.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// Format selects how results are rendered.
type Format string

const (
	// FormatText renders tab-aligned columns.
	FormatText Format = "text"

	// FormatYAML renders a YAML document.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat indicates an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat validates a format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected text or yaml)", ErrUnknownFormat, s)
	}
}

// Writer writes results to the configured output destination.
// By default, it writes text to stdout.
type Writer struct {
	out    io.Writer
	format Format
}

// NewWriter creates a new Writer that writes to stdout.
func NewWriter(format Format) *Writer {
	return &Writer{out: os.Stdout, format: format}
}

// NewWriterWithOutput creates a new Writer with a custom output destination.
// This is useful for testing.
func NewWriterWithOutput(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

type parameterView struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Scope string `yaml:"scope"`
	File  string `yaml:"file,omitempty"`
}

type referenceView struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Hash    string `yaml:"hash"`
	Object  string `yaml:"object,omitempty"`
	Current bool   `yaml:"current,omitempty"`
}

// WriteParameters writes configuration parameters, one per line in text mode.
func (w *Writer) WriteParameters(params []domain.ConfigParameterData) error {
	if w.format == FormatYAML {
		views := make([]parameterView, 0, len(params))
		for _, p := range params {
			views = append(views, parameterView{Name: p.Name, Value: p.Value, Scope: p.ConfigFile.String(), File: p.FileName})
		}
		return w.yaml(views)
	}
	for _, p := range params {
		if _, err := fmt.Fprintf(w.out, "%s=%s\n", p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteValue writes a single configuration value.
func (w *Writer) WriteValue(param domain.ConfigParameterData) error {
	if w.format == FormatYAML {
		return w.yaml(parameterView{Name: param.Name, Value: param.Value, Scope: param.ConfigFile.String(), File: param.FileName})
	}
	_, err := fmt.Fprintln(w.out, param.Value)
	return err
}

// WriteRevisions writes a log listing, newest first.
func (w *Writer) WriteRevisions(revs []domain.RevisionData) error {
	if w.format == FormatYAML {
		return w.yaml(revs)
	}
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	for _, r := range revs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortHash(r.Hash), r.AuthorDate.Format(time.DateOnly), r.Author.Name, r.Subject)
	}
	return tw.Flush()
}

// WriteRevision writes one revision in full, with the references pointing at it.
func (w *Writer) WriteRevision(rev domain.RevisionData, refs []domain.ReferenceData) error {
	if w.format == FormatYAML {
		return w.yaml(struct {
			domain.RevisionData `yaml:",inline"`
			References          []referenceView `yaml:"references,omitempty"`
		}{rev, referenceViews(refs, "")})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "commit %s", rev.Hash)
	if len(refs) > 0 {
		names := make([]string, 0, len(refs))
		for _, r := range refs {
			names = append(names, shortRefName(r.FullName))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(names, ", "))
	}
	b.WriteString("\n")
	if len(rev.Parents) > 1 {
		short := make([]string, 0, len(rev.Parents))
		for _, p := range rev.Parents {
			short = append(short, shortHash(p))
		}
		fmt.Fprintf(&b, "Merge:     %s\n", strings.Join(short, " "))
	}
	fmt.Fprintf(&b, "Author:    %s\n", rev.Author.Key())
	fmt.Fprintf(&b, "Date:      %s\n", rev.AuthorDate.Format(time.RFC1123Z))
	if rev.Committer != rev.Author {
		fmt.Fprintf(&b, "Committer: %s\n", rev.Committer.Key())
	}
	fmt.Fprintf(&b, "\n    %s\n", rev.Subject)
	if rev.Body != "" {
		b.WriteString("\n")
		for _, line := range strings.Split(rev.Body, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	_, err := io.WriteString(w.out, b.String())
	return err
}

// WriteReferences writes references; current marks the checked-out branch.
func (w *Writer) WriteReferences(refs []domain.ReferenceData, current string) error {
	if w.format == FormatYAML {
		return w.yaml(referenceViews(refs, current))
	}
	tw := tabwriter.NewWriter(w.out, 0, 4, 2, ' ', 0)
	for _, r := range refs {
		marker := " "
		if r.FullName == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, shortHash(r.Hash), r.Type, r.FullName)
	}
	return tw.Flush()
}

func (w *Writer) yaml(v any) error {
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func referenceViews(refs []domain.ReferenceData, current string) []referenceView {
	views := make([]referenceView, 0, len(refs))
	for _, r := range refs {
		v := referenceView{Name: r.FullName, Type: r.Type.String(), Hash: r.Hash, Current: r.FullName == current}
		if r.IsAnnotated() {
			v.Object = r.ObjectHash
		}
		views = append(views, v)
	}
	return views
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func shortRefName(full string) string {
	for _, prefix := range []string{"refs/heads/", "refs/remotes/", "refs/tags/"} {
		if name, ok := strings.CutPrefix(full, prefix); ok {
			if prefix == "refs/tags/" {
				return "tag: " + name
			}
			return name
		}
	}
	return full
}
