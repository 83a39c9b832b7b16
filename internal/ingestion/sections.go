package ingestion

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/resume-rag/internal/types"
)

const (
	sectionHead       = "head"
	sectionSummary    = "summary"
	sectionEducation  = "education"
	sectionProjects   = "projects"
	sectionExperience = "experience"
	sectionSkills     = "skills"
	sectionOther      = "other"
)

var sectionHeaders = map[string]string{
	"summary":                 sectionSummary,
	"profile":                 sectionSummary,
	"objective":               sectionSummary,
	"about":                   sectionSummary,
	"about me":                sectionSummary,
	"professional summary":    sectionSummary,
	"education":               sectionEducation,
	"education and training":  sectionEducation,
	"academic background":     sectionEducation,
	"academics":               sectionEducation,
	"qualifications":          sectionEducation,
	"projects":                sectionProjects,
	"personal projects":       sectionProjects,
	"selected projects":       sectionProjects,
	"key projects":            sectionProjects,
	"side projects":           sectionProjects,
	"academic projects":       sectionProjects,
	"open source":             sectionProjects,
	"experience":              sectionExperience,
	"work experience":         sectionExperience,
	"professional experience": sectionExperience,
	"employment":              sectionExperience,
	"employment history":      sectionExperience,
	"work history":            sectionExperience,
	"skills":                  sectionSkills,
	"technical skills":        sectionSkills,
	"core skills":             sectionSkills,
	"key skills":              sectionSkills,
	"technologies":            sectionSkills,
	"tech stack":              sectionSkills,
	"certifications":          sectionOther,
	"certificates":            sectionOther,
	"awards":                  sectionOther,
	"honors":                  sectionOther,
	"publications":            sectionOther,
	"languages":               sectionOther,
	"interests":               sectionOther,
	"hobbies":                 sectionOther,
	"references":              sectionOther,
	"volunteering":            sectionOther,
	"volunteer experience":    sectionOther,
	"activities":              sectionOther,
	"achievements":            sectionOther,
}

// sectionKey reports whether a whole line is a section header.
func sectionKey(line string) (string, bool) {
	key := strings.ToLower(strings.Trim(strings.TrimSpace(line), "#*_=: \t"))
	if key == "" || len(strings.Fields(key)) > 4 {
		return "", false
	}
	s, ok := sectionHeaders[key]
	return s, ok
}

// splitSections groups lines under the header that precedes them. Lines
// before the first header belong to sectionHead. Blank lines are kept since
// they separate entries.
func splitSections(text string) map[string][]string {
	sections := make(map[string][]string)
	current := sectionHead
	for _, line := range strings.Split(text, "\n") {
		if key, ok := sectionKey(line); ok {
			current = key
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

var (
	yearRe  = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	gpaRe   = regexp.MustCompile(`(?i)\bgpa\b\s*[:\-]?\s*([0-4]\.\d{1,2}(?:\s*/\s*\d(?:\.\d{1,2})?)?)`)
	linkRe  = regexp.MustCompile(`https?://[^\s)]+|\b(?:github|gitlab)\.com/[^\s)]+`)
	techRe  = regexp.MustCompile(`(?i)^(?:technologies|tech stack|tech|stack|tools|built with)\s*[:\-]\s*(.+)$`)
	parenRe = regexp.MustCompile(`\s*\(([^)]+)\)\s*$`)
	eduSep  = regexp.MustCompile(`\s*(?:,|\||;|\s[-–—]\s)\s*|\s+(?i:from|at)\s+`)
)

// ExtractPII finds the candidate's email, phone number and name. It returns
// nil when none of them is present.
func ExtractPII(text string) *types.PII {
	pii := &types.PII{
		Email: types.FindEmail(text),
		Phone: types.FindPhone(text),
		Name:  guessName(text),
	}
	if pii.IsEmpty() {
		return nil
	}
	return pii
}

// guessName takes the first short line of capitalized words near the top of
// the resume.
func guessName(text string) string {
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		line = stripBullet(line)
		if line == "" {
			continue
		}
		if _, ok := sectionKey(line); ok || seen >= 5 {
			return ""
		}
		seen++
		if lower := strings.ToLower(line); strings.HasPrefix(lower, "name:") {
			line = strings.TrimSpace(line[len("name:"):])
		}
		if looksLikeName(line) {
			return line
		}
	}
	return ""
}

func looksLikeName(line string) bool {
	if strings.ContainsAny(line, "@:/") || strings.ContainsFunc(line, unicode.IsDigit) {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
		for _, c := range r {
			if !unicode.IsLetter(c) && !strings.ContainsRune("-'.’", c) {
				return false
			}
		}
	}
	return true
}

var degreeWords = map[string]bool{
	"bs": true, "bsc": true, "ba": true, "bba": true, "btech": true, "beng": true,
	"bachelor": true, "bachelors": true,
	"ms": true, "msc": true, "mtech": true, "meng": true, "mba": true, "mphil": true,
	"master": true, "masters": true,
	"phd": true, "dphil": true, "doctor": true, "doctorate": true,
	"associate": true, "associates": true, "aas": true, "diploma": true,
}

var institutionWords = []string{
	"university", "college", "institute", "school", "academy", "polytechnic",
}

func isDegree(seg string) bool {
	cleaned := strings.ToLower(strings.ReplaceAll(seg, ".", ""))
	for _, w := range strings.Fields(cleaned) {
		w = strings.Trim(w, "(),;")
		w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "’s")
		if degreeWords[w] {
			return true
		}
	}
	return false
}

func isInstitution(seg string) bool {
	lower := strings.ToLower(seg)
	for _, w := range institutionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// ExtractEducation parses the education section into entries. A new entry
// starts at a blank line or when a line repeats a field the current entry
// already has.
func ExtractEducation(text string) []types.Education {
	var (
		out []types.Education
		cur types.Education
	)
	flush := func() {
		if cur.Degree != "" || cur.Institution != "" {
			out = append(out, cur)
		}
		cur = types.Education{}
	}

	for _, line := range splitSections(text)[sectionEducation] {
		line = stripBullet(line)
		if line == "" {
			flush()
			continue
		}
		e := parseEducationLine(line)
		if (e.Degree != "" && cur.Degree != "") || (e.Institution != "" && cur.Institution != "") {
			flush()
		}
		if e.Degree != "" {
			cur.Degree = e.Degree
		}
		if e.Institution != "" {
			cur.Institution = e.Institution
		}
		if e.Year != "" && cur.Year == "" {
			cur.Year = e.Year
		}
		if e.GPA != "" && cur.GPA == "" {
			cur.GPA = e.GPA
		}
	}
	flush()
	return out
}

func parseEducationLine(line string) types.Education {
	var e types.Education

	if m := gpaRe.FindStringSubmatchIndex(line); m != nil {
		e.GPA = strings.ReplaceAll(line[m[2]:m[3]], " ", "")
		line = line[:m[0]] + line[m[1]:]
	}
	if years := yearRe.FindAllString(line, -1); len(years) > 0 {
		e.Year = years[len(years)-1]
	}

	last := ""
	for _, seg := range eduSep.Split(line, -1) {
		seg = strings.TrimSpace(yearRe.ReplaceAllString(seg, ""))
		seg = strings.Trim(seg, "()[]-–— \t")
		if seg == "" {
			continue
		}
		switch {
		case e.Degree == "" && isDegree(seg):
			e.Degree = seg
			last = "degree"
		case e.Institution == "" && isInstitution(seg):
			e.Institution = seg
			last = "institution"
		case last == "degree" && !isInstitution(seg):
			// "B.S., Computer Science" names the field after the degree.
			e.Degree += ", " + seg
			last = ""
		default:
			last = ""
		}
	}
	return e
}

// ExtractProjects parses the projects section. A project starts at a line
// that is not a bullet, or at a bullet shaped like "Title: description"
// once the current project already has a description. Other bullets extend
// the current project's description.
func ExtractProjects(text string) []types.Project {
	var (
		out  []types.Project
		cur  *types.Project
		desc []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		if len(desc) > 0 {
			cur.Description = strings.Join(desc, " ")
		}
		out = append(out, *cur)
		cur, desc = nil, nil
	}

	for _, raw := range splitSections(text)[sectionProjects] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		bullet := isBulletLine(raw)
		line := stripBullet(raw)

		if m := techRe.FindStringSubmatch(line); m != nil && cur != nil {
			cur.Technologies = append(cur.Technologies, splitList(m[1])...)
			continue
		}
		title, rest, sep := splitTitle(line)
		wrapped := !bullet && sep == "" && len(strings.Fields(line)) > 8
		startNew := cur == nil || (!bullet && !wrapped) || (sep != "" && len(desc) > 0)
		if !startNew {
			desc = append(desc, line)
			if cur.Link == "" {
				cur.Link = linkRe.FindString(line)
			}
			continue
		}

		flush()
		cur = &types.Project{}
		if sep == "" {
			title, rest = line, ""
		}
		if m := parenRe.FindStringSubmatchIndex(title); m != nil {
			inner := title[m[2]:m[3]]
			if !yearRe.MatchString(inner) {
				cur.Technologies = splitList(inner)
				title = title[:m[0]]
			}
		}
		cur.Title = strings.TrimSpace(title)
		cur.Link = linkRe.FindString(line)
		if rest != "" {
			if sep == "|" && looksLikeList(rest) {
				cur.Technologies = append(cur.Technologies, splitList(rest)...)
			} else {
				desc = append(desc, rest)
			}
		}
	}
	flush()
	return out
}

var titleSeps = []string{": ", " - ", " – ", " — ", " | "}

// splitTitle splits "Title: rest" style lines. The title must be short.
func splitTitle(line string) (title, rest, sep string) {
	if strings.HasSuffix(line, ":") {
		t := strings.TrimSuffix(line, ":")
		if n := len(strings.Fields(t)); n > 0 && n <= 8 {
			return t, "", ":"
		}
	}
	best := -1
	for _, s := range titleSeps {
		if i := strings.Index(line, s); i > 0 && (best < 0 || i < best) {
			best = i
			sep = s
		}
	}
	if best < 0 {
		return "", "", ""
	}
	title = strings.TrimSpace(line[:best])
	if n := len(strings.Fields(title)); n == 0 || n > 8 {
		return "", "", ""
	}
	return title, strings.TrimSpace(line[best+len(sep):]), strings.TrimSpace(sep)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
		if part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ".")); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func looksLikeList(s string) bool {
	parts := splitList(s)
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if len(strings.Fields(p)) > 3 {
			return false
		}
	}
	return true
}
