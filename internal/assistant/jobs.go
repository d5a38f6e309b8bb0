package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-trends/internal/chatlog"
	"github.com/dvloznov/statement-trends/internal/jobs"
)

// JobHandler answers queued assistant questions with svc. The session is
// created before the first attempt so retries stay in one conversation.
func JobHandler(svc *Service) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		aj, ok := job.(*jobs.AssistantJob)
		if !ok {
			return jobs.Permanent(fmt.Errorf("unexpected job type %s", job.GetType()))
		}

		if strings.TrimSpace(aj.Question) == "" {
			return jobs.Permanent(ErrEmptyQuestion)
		}

		if aj.SessionID == "" {
			id, err := svc.logs.Create(aj.Theme)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			aj.SessionID = id
		}

		ans, err := svc.Ask(ctx, Request{SessionID: aj.SessionID, Question: aj.Question})
		if err != nil {
			if errors.Is(err, ErrEmptyQuestion) || errors.Is(err, chatlog.ErrInvalidSession) {
				return jobs.Permanent(err)
			}
			return err
		}

		aj.Code = ans.Code
		aj.Valid = ans.Valid
		aj.ValidationError = ans.ValidationError
		aj.ModelName = ans.ModelName
		aj.TokensUsed = ans.TokensUsed
		return nil
	}
}
