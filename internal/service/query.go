package service

import (
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/d0ggzi/celery-clinic/internal/domain/model"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// recordsDocument converts records into the generic JSON shape JMESPath searches.
func recordsDocument(recs []model.Record) []any {
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = map[string]any{
			"record_id": r.ID,
			"doctor":    r.Doctor,
			"date":      r.Date,
		}
	}
	return out
}
