package workers

import (
	"context"
	"log/slog"
)

// AddPreProcessHooks adds functions run after Checkout and before Process.
func (wp *WorkerPool[T]) AddPreProcessHooks(hooks ...PreProcessHook[T]) {
	wp.preProcessHooks = append(wp.preProcessHooks, hooks...)
}

// AddPostProcessHooks adds functions run after Process and before Complete or Fail.
func (wp *WorkerPool[T]) AddPostProcessHooks(hooks ...PostProcessHook[T]) {
	wp.postProcessHooks = append(wp.postProcessHooks, hooks...)
}

// LogOutcomeHook logs every settled task at debug level, and failures at error.
func LogOutcomeHook[T Task](log *slog.Logger) PostProcessHook[T] {
	return func(ctx context.Context, task T, err error) error {
		if err != nil {
			log.ErrorContext(ctx, "task failed", "task_id", task.GetID(), "error", err)
			return nil
		}
		log.DebugContext(ctx, "task done", "task_id", task.GetID())
		return nil
	}
}
