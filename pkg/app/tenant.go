package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flemzord/ragraft/internal/tenant"
)

const codeAttempts = 5

// ErrCodeTaken is returned when an explicit public code is already in use.
var ErrCodeTaken = errors.New("app: public code already in use")

// CreateTenant registers a tenant named name. An empty code draws a random
// unused one.
func CreateTenant(ctx context.Context, dir tenant.Directory, name, code string) (tenant.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return tenant.Tenant{}, errors.New("app: tenant name is required")
	}

	code = strings.TrimSpace(code)
	if code != "" {
		if !tenant.ValidPublicCode(code) {
			return tenant.Tenant{}, fmt.Errorf("%w: %q", tenant.ErrInvalidCode, code)
		}
		if _, taken, err := dir.TenantByCode(ctx, code); err != nil {
			return tenant.Tenant{}, err
		} else if taken {
			return tenant.Tenant{}, fmt.Errorf("%w: %s", ErrCodeTaken, code)
		}
	} else {
		var err error
		if code, err = freeCode(ctx, dir); err != nil {
			return tenant.Tenant{}, err
		}
	}

	t := tenant.Tenant{
		ID:         uuid.NewString(),
		Name:       name,
		PublicCode: code,
		CreatedAt:  time.Now().UTC(),
	}
	if err := dir.CreateTenant(ctx, t); err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

func freeCode(ctx context.Context, dir tenant.Directory) (string, error) {
	for range codeAttempts {
		code, err := tenant.NewPublicCode()
		if err != nil {
			return "", fmt.Errorf("app: generate public code: %w", err)
		}
		_, taken, err := dir.TenantByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("app: no free public code after %d attempts", codeAttempts)
}
