package usecase

import "time"

func (uc *TaskUseCaseImpl) SetClock(now func() time.Time) {
	uc.now = now
}
