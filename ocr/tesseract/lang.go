package tesseract

import "golang.org/x/text/language"

// special cases where the ISO 639-2/T code differs from the traineddata
// name tesseract ships.
var tessNames = map[string]string{
	"zho": "chi_sim",
}

// TessLanguages converts BCP 47 tags to tesseract traineddata names
// ("ko" becomes "kor", "en" becomes "eng"). Tags that do not parse are
// dropped rather than passed through, since tesseract aborts on an
// unknown language.
func TessLanguages(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		tag, err := language.Parse(t)
		if err != nil {
			continue
		}
		base, conf := tag.Base()
		if conf == language.No {
			continue
		}
		name := base.ISO3()
		if mapped, ok := tessNames[name]; ok {
			name = mapped
		}
		out = append(out, name)
	}
	return out
}
