package contour

// Default label configuration constants.
const (
	defaultFormat   = "%1.3f"
	defaultFontSize = 10.0
	// charWidthRatio approximates a glyph's advance relative to the font size.
	charWidthRatio = 0.6
)

// Option applies a configuration option to the Set.
type Option func(*Set)

// WithFormat sets the fmt verb used to render level values.
func WithFormat(format string) Option {
	return func(s *Set) {
		if format != "" {
			s.format = format
		}
	}
}

// WithFontSize sets the label font size in points.
func WithFontSize(size float64) Option {
	return func(s *Set) {
		if size > 0 {
			s.fontSize = size
		}
	}
}
