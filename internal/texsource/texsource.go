// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package texsource parses a paper's LaTeX source archive into a Bundle:
// the cleaned text of every .tex member plus the primary document with its
// \input and \include directives substituted one level deep.
//
// Parsing fails soft. An unreadable file, a non-tar file, or an archive
// without .tex members yields a nil Bundle and a debug log line.
package texsource

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	texSuffix = ".tex"
	bblSuffix = ".bbl"

	beginDocument = `\begin{document}`
)

// includeRe matches \input{name} and \include{name} on a single line.
var includeRe = regexp.MustCompile(`\\(?:input|include)\{(.+?)\}`)

// Parse opens the archive at path and builds its Bundle. paperID is used
// only in log fields. It returns nil when no bundle can be built.
func Parse(path, paperID string, logger *zap.Logger) *types.Bundle {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("cannot open source archive", zap.String("paper_id", paperID), zap.Error(err))
		return nil
	}
	defer f.Close()
	return ParseReader(f, paperID, logger)
}

// ParseReader builds a Bundle from an archive stream. See Parse.
func ParseReader(r io.Reader, paperID string, logger *zap.Logger) *types.Bundle {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("paper_id", paperID))

	var bblNames []string
	members, err := readMembers(r, func(name string) bool {
		if strings.HasSuffix(name, bblSuffix) {
			bblNames = append(bblNames, name)
			return false
		}
		return strings.HasSuffix(name, texSuffix)
	})
	if err != nil {
		log.Debug("failed to find main tex file", zap.Error(err))
		return nil
	}
	if len(members) == 0 {
		log.Debug("failed to find main tex file: no tex file")
		return nil
	}

	bundle := &types.Bundle{Files: make(map[string]string, len(members))}
	for _, m := range members {
		if _, dup := bundle.Files[m.name]; !dup {
			bundle.Order = append(bundle.Order, m.name)
		}
		bundle.Files[m.name] = Clean(decode(m.data))
	}

	primary, reason := primaryFromBibliography(bundle.Order, bblNames)
	if primary == "" {
		log.Debug("cannot find main tex file from bbl", zap.String("reason", reason))
		primary = primaryFromContent(bundle)
		if primary != "" {
			log.Debug("chose tex file containing the document block", zap.String("file", primary))
		}
	}
	if primary == "" {
		log.Debug("failed to find main tex file: no tex file containing the document block")
		return bundle
	}

	flat := Flatten(bundle.Files[primary], bundle.Files)
	bundle.Primary = primary
	bundle.Flattened = &flat
	return bundle
}

// decode converts member bytes to text, replacing invalid UTF-8.
func decode(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}

// primaryFromBibliography applies the .bbl rule. With no .bbl file a lone
// .tex member is primary; with exactly one .bbl file the .tex member of the
// same base name is primary; otherwise the rule cannot decide and the
// returned reason says why.
func primaryFromBibliography(texNames, bblNames []string) (string, string) {
	switch len(bblNames) {
	case 0:
		if len(texNames) == 1 {
			return texNames[0], ""
		}
		return "", "multiple tex files and no bbl file"
	case 1:
		candidate := strings.TrimSuffix(bblNames[0], bblSuffix) + texSuffix
		for _, name := range texNames {
			if name == candidate {
				return name, ""
			}
		}
		return "", "the bbl file does not match any tex file"
	default:
		return "", fmt.Sprintf("%d bbl files", len(bblNames))
	}
}

// primaryFromContent returns the first member, in archive order, whose
// cleaned content contains \begin{document}.
func primaryFromContent(b *types.Bundle) string {
	for _, name := range b.Order {
		if strings.Contains(b.Files[name], beginDocument) {
			return name
		}
	}
	return ""
}

// Flatten substitutes every \input{x} and \include{x} directive in primary
// with the content of member x (".tex" appended when missing), or with the
// empty string when x is not in files. Substitution is a single pass: the
// inserted text is not scanned again, so nested inclusions stay verbatim.
func Flatten(primary string, files map[string]string) string {
	return includeRe.ReplaceAllStringFunc(primary, func(directive string) string {
		name := includeRe.FindStringSubmatch(directive)[1]
		if !strings.HasSuffix(name, texSuffix) {
			name += texSuffix
		}
		return files[name]
	})
}
