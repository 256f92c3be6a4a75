package pipeline

import "github.com/arohandas/introute/models"

// taskTypeFor maps a query category onto the TaskType the bandit
// selector ranks agents against. A category can in principle fan out
// into several task types over the course of a pipeline run (the
// registry's own agents list more than one primary task each); this is
// the single task type stage 5 asks the selector to fill, chosen as
// whichever task best matches what response_generation actually needs
// an agent to do for that category.
func taskTypeFor(category models.Category) models.TaskType {
	switch category {
	case models.CategoryResearch:
		return models.TaskResearch
	case models.CategoryDocumentAnalysis:
		return models.TaskAnalysis
	case models.CategoryMultiStep:
		return models.TaskAnalysis
	case models.CategoryEntityExtraction:
		return models.TaskEntityExtraction
	case models.CategoryConversational:
		return models.TaskAnswerGeneration
	case models.CategoryDocumentLookup:
		fallthrough
	default:
		return models.TaskAnswerGeneration
	}
}
