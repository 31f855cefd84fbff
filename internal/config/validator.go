package config

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	tenanterrors "github.com/clouddesk/tenantctl/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?$`)
	domainPattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)
)

// validatorInstance configures the shared validator used across the package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("tenant_domain", func(fl validator.FieldLevel) bool {
			return domainPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d >= 0
		})

		validateInst = v
	})

	return validateInst
}

// ValidateConfig checks structural constraints and returns the first
// violation as a typed ValidationError.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return tenanterrors.NewValidationError("", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return tenanterrors.NewValidationError(fe.Namespace(),
				fmt.Sprintf("failed %q constraint", fe.Tag()), err)
		}
		return tenanterrors.NewValidationError("", err.Error(), err)
	}

	// Secrets belong in the environment, not the document; a partially
	// filled auth block is a config mistake worth naming.
	if (cfg.Auth.TenantID != "" || cfg.Auth.ClientID != "" || cfg.Auth.SecretEnv != "") && !cfg.Auth.Configured() {
		return tenanterrors.NewValidationError("auth",
			"tenant_id, client_id and client_secret_env must be set together", nil)
	}

	return nil
}
