package mapctl

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/paulmach/orb"

	"github.com/samirrijal/villagemap/internal/core/domain"
)

// SquareMetersPerRante is the local land unit used around Lake Toba.
const SquareMetersPerRante = 400.0

// Report is a downloadable measurement summary.
type Report struct {
	Filename string
	Content  []byte
}

// BuildReport formats a measurement. The output depends only on its
// arguments.
func BuildReport(label string, polygon orb.Polygon, res domain.MeasurementResult, now time.Time) *Report {
	if label == "" {
		label = domain.UnknownProperty
	}
	var b strings.Builder
	title := "LAPORAN PENGUKURAN WILAYAH"
	fmt.Fprintln(&b, title)
	fmt.Fprintln(&b, strings.Repeat("=", len(title)))
	fmt.Fprintf(&b, "Lokasi    : %s\n", label)
	fmt.Fprintf(&b, "Waktu     : %s\n", now.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Luas      : %.2f m²\n", res.AreaSquareMeters)
	fmt.Fprintf(&b, "            %.4f ha\n", res.AreaSquareMeters/10000)
	fmt.Fprintf(&b, "            %.2f rante (1 rante = %.0f m²)\n", res.AreaSquareMeters/SquareMetersPerRante, SquareMetersPerRante)
	fmt.Fprintf(&b, "Keliling  : %.2f m\n", res.PerimeterMeters)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Titik koordinat (bujur, lintang):")
	if len(polygon) > 0 {
		ring := polygon[0]
		for i, p := range ring {
			line := fmt.Sprintf("  %d. %.6f, %.6f", i+1, p.Lon(), p.Lat())
			if i == len(ring)-1 && len(ring) > 1 && p.Equal(ring[0]) {
				line += " (titik penutup)"
			}
			fmt.Fprintln(&b, line)
		}
	}

	return &Report{
		Filename: fmt.Sprintf("pengukuran-%s-%s.txt", slug(label), now.Format("20060102-150405")),
		Content:  []byte(b.String()),
	}
}

// slug keeps the leading name of a label ("Saribudolok (12.08...)" gives
// "saribudolok") in lowercase with dashes.
func slug(label string) string {
	if i := strings.Index(label, " ("); i > 0 {
		label = label[:i]
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "wilayah"
	}
	return s
}
