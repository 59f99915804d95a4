package watcher

// ChangeAnalysis describes what a batch of source changes implies for the
// next build: whether the whole recipe must be rerun, or only the
// targets reachable from the changed source name.
type ChangeAnalysis struct {
	NeedFullRebuild bool
	ChangedFiles    []string
}

// AnalyzeChanges determines whether a change requires rebuilding the whole
// recipe (a designspace file redefines the entire source family the recipe
// is built from) or can be scoped to whatever targets depend on the
// changed files.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{ChangedFiles: event.Paths}
	if event.Type == ChangeTypeDesignspace {
		analysis.NeedFullRebuild = true
	}
	return analysis
}
