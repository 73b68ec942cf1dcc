package workers

import "context"

type Job[T any] struct {
	Description JobDescriptor
	ExecFn      ExecutionFn[T]
	Args        T
}

type ExecutionFn[T any] func(ctx context.Context, args T) (T, error)

type JobID string
type JobType string

type JobDescriptor struct {
	ID       JobID
	JobType  JobType
	Metadata map[string]string
}

type Result[T any] struct {
	Value       T
	Err         error
	Description JobDescriptor
}

func (j Job[T]) execute(ctx context.Context) Result[T] {
	value, err := j.ExecFn(ctx, j.Args)
	if err != nil {
		return Result[T]{
			Err:         err,
			Description: j.Description,
		}
	}

	return Result[T]{
		Value:       value,
		Description: j.Description,
	}
}
