package elasticsearch

import (
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/safetab/db"
	"hermannm.dev/wrap"
)

const indexNotFoundType = "index_not_found_exception"

func wrapElasticErrorf(wrapped error, format string, args ...any) error {
	return wrap.Errorf(describeElasticError(wrapped), format, args...)
}

// The typed client's errors only print their status, so this spells out the reason and root
// causes. Missing indices wrap db.ErrTableNotFound.
func describeElasticError(err error) error {
	var elasticErr *types.ElasticsearchError
	if !errors.As(err, &elasticErr) {
		return err
	}

	message := fmt.Sprintf(
		"%s, status %d", describeErrorCause(elasticErr.ErrorCause), elasticErr.Status,
	)
	if elasticErr.ErrorCause.Type == indexNotFoundType {
		return fmt.Errorf("%w: %s", db.ErrTableNotFound, message)
	}

	rootCauses := make([]error, 0, len(elasticErr.ErrorCause.RootCause))
	for _, cause := range elasticErr.ErrorCause.RootCause {
		rootCauses = append(rootCauses, errors.New(describeErrorCause(cause)))
	}

	if len(rootCauses) == 0 {
		return errors.New(message)
	}
	return wrap.Errors(message, rootCauses...)
}

func describeErrorCause(cause types.ErrorCause) string {
	if cause.Reason == nil {
		return cause.Type
	}
	return fmt.Sprintf("%s (%s)", *cause.Reason, cause.Type)
}
