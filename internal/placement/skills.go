package placement

import "strings"

var knownSkills = []string{
	"python", "java", "javascript", "react", "node.js", "fastapi",
	"sql", "postgresql", "mongodb", "aws", "docker", "kubernetes",
	"machine learning", "deep learning", "tensorflow", "pytorch",
	"git", "agile", "scrum", "rest api", "graphql",
}

// ExtractSkills lists the known skills mentioned in text, in list order.
// Matching is a case-insensitive substring scan, so "javascript" also
// reports "java".
func ExtractSkills(text string) []string {
	lower := strings.ToLower(text)

	found := make([]string, 0)
	for _, skill := range knownSkills {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}
