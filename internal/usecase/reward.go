package usecase

import "github.com/eslsoft/hifznet/internal/entity"

var pointsByGrade = map[entity.Grade]int32{
	entity.GradeForgot:    5,
	entity.GradeDifficult: 10,
	entity.GradeMedium:    20,
	entity.GradeEasy:      30,
	entity.GradePerfect:   40,
}

// PointsFor returns the points awarded for completing one review. Even a
// forgotten surah earns a little, the effort counts.
func PointsFor(grade entity.Grade) int32 {
	if points, ok := pointsByGrade[grade]; ok {
		return points
	}
	return 20
}
