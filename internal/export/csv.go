// Package export renders an assembled unit tree as a position roster.
package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
)

// Header lists the roster columns in output order
var Header = []string{"Position", "Role", "Holder", "Service Number", "Unit", "Branch", "Status"}

const (
	unknown = "Unknown"
	vacant  = "VACANT"
	none    = "-"
)

// PositionRows returns one row per position, visiting units depth-first in
// pre-order. Units without positions contribute no rows.
func PositionRows(roots []*model.UnitNode) [][]string {
	var rows [][]string
	hierarchy.Walk(roots, func(n *model.UnitNode, _ int) {
		for _, p := range n.Positions {
			rows = append(rows, positionRow(n, p))
		}
	})
	return rows
}

func positionRow(unit *model.UnitNode, p model.PositionRecord) []string {
	status := "Filled"
	if p.IsVacant {
		status = "Vacant"
	}

	return []string{
		positionTitle(p),
		roleName(p),
		holderName(p),
		serviceNumber(p),
		unit.DisplayAbbreviation(),
		fallback(unit.BranchName(), none),
		status,
	}
}

func positionTitle(p model.PositionRecord) string {
	if p.DisplayTitle != "" {
		return p.DisplayTitle
	}
	return fallback(p.Title, unknown)
}

// roleName is empty when the position carries no role reference at all and
// "Unknown" when the reference has no name
func roleName(p model.PositionRecord) string {
	if p.Role == nil {
		return ""
	}
	return fallback(p.Role.Name, unknown)
}

func holderName(p model.PositionRecord) string {
	if p.IsVacant {
		return vacant
	}
	if p.CurrentHolder == nil {
		return unknown
	}
	name := strings.TrimSpace(fmt.Sprintf("%s %s", p.CurrentHolder.Rank, p.CurrentHolder.Username))
	return fallback(name, unknown)
}

func serviceNumber(p model.PositionRecord) string {
	if p.CurrentHolder == nil {
		return none
	}
	return fallback(p.CurrentHolder.ServiceNumber, none)
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// WriteCSV streams the header and position rows as CSV. Every record ends
// with a newline.
func WriteCSV(w io.Writer, roots []*model.UnitNode) error {
	bw := bufio.NewWriter(w)
	writeRecord(bw, Header)
	for _, row := range PositionRows(roots) {
		writeRecord(bw, row)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// writeRecord relies on bufio.Writer keeping the first error for Flush
func writeRecord(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(escapeField(f))
	}
	bw.WriteByte('\n')
}

// escapeField quotes a value only when it contains a comma, a double quote
// or a line break, doubling embedded quotes. Leading spaces stay bare.
func escapeField(v string) string {
	if !strings.ContainsAny(v, ",\"\r\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// ExportCSV returns the roster as a CSV string: the header plus one line per
// position, joined by newlines with no trailing newline
func ExportCSV(roots []*model.UnitNode) string {
	var buf bytes.Buffer
	// Writing to a bytes.Buffer cannot fail
	_ = WriteCSV(&buf, roots)
	return strings.TrimSuffix(buf.String(), "\n")
}
