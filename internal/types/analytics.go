//nolint:revive // types is a standard Go package name pattern
package types

// SkillCount is the number of documents listing a skill.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// MonthCount is the number of uploads in a calendar month (YYYY-MM).
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Analytics is the body of GET /resumes/analytics/basic.
type Analytics struct {
	TotalResumes    int          `json:"totalResumes"`
	TopSkills       []SkillCount `json:"topSkills"`
	UploadsPerMonth []MonthCount `json:"uploadsPerMonth"`
}
