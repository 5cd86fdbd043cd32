package analyzer

// Quality is the expected fidelity of the rendered template.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// IsValid reports whether q is a known rating.
func (q Quality) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor:
		return true
	}
	return false
}

// Upper bounds (inclusive) of each quality band.
const (
	excellentMaxScale = 1.0
	goodMaxScale      = 1.1
	fairMaxScale      = 1.3
)

// RateQuality rates the visual cost of scaling by scaleFactor.
func RateQuality(scaleFactor float64) Quality {
	switch {
	case scaleFactor <= excellentMaxScale:
		return QualityExcellent
	case scaleFactor <= goodMaxScale:
		return QualityGood
	case scaleFactor <= fairMaxScale:
		return QualityFair
	default:
		return QualityPoor
	}
}
