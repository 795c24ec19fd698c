package controllers

import (
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/content"
	"github.com/squall-leonhart-19/AccrediPro-Beta-01-sub001/progress"
)

// CourseController serves learner progress, certificates and admin course tools.
type CourseController struct {
	Engine   *progress.Engine
	Importer *content.Importer
}

func NewCourseController(engine *progress.Engine, importer *content.Importer) *CourseController {
	return &CourseController{Engine: engine, Importer: importer}
}
