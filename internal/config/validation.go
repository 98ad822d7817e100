// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

// ValidationIssue describes a single configuration problem. Level is
// either "error" (load fails) or "warning" (load proceeds).
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

// ValidateConfiguration checks cfg for internally inconsistent or unsafe
// values. It assumes setDefaults has already run.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Session != nil {
		if cfg.Session.IdleTimeout <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "session.idle_timeout", Level: "error",
				Message: "idle timeout must be positive",
			})
		}
		if cfg.Session.BackgroundTimeout <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "session.background_timeout", Level: "error",
				Message: "background timeout must be positive",
			})
		}
		if cfg.Session.BackgroundTimeout > cfg.Session.IdleTimeout {
			issues = append(issues, ValidationIssue{
				Field: "session.background_timeout", Level: "warning",
				Message: "background timeout is longer than idle timeout",
			})
		}
	}

	if cfg.ChatCache != nil {
		if cfg.ChatCache.Size <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "chat_cache.size", Level: "error",
				Message: "chat cache size must be positive",
			})
		}
		if cfg.ChatCache.TTL <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "chat_cache.ttl", Level: "error",
				Message: "chat cache TTL must be positive",
			})
		}
	}

	if cfg.Attestation != nil {
		if cfg.Attestation.TrustRootBundle == "" {
			issues = append(issues, ValidationIssue{
				Field: "attestation.trust_root_bundle", Level: "error",
				Message: "trust root bundle path is required",
			})
		}
		if cfg.Attestation.FetchTimeout <= 0 {
			issues = append(issues, ValidationIssue{
				Field: "attestation.fetch_timeout", Level: "error",
				Message: "attestation fetch timeout must be positive",
			})
		}
	}

	if cfg.Handshake != nil && cfg.Handshake.Timeout <= 0 {
		issues = append(issues, ValidationIssue{
			Field: "handshake.timeout", Level: "error",
			Message: "handshake timeout must be positive",
		})
	}

	if cfg.Transport != nil && cfg.Transport.PingInterval <= 0 {
		issues = append(issues, ValidationIssue{
			Field: "transport.ping_interval", Level: "error",
			Message: "transport ping interval must be positive",
		})
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error", "fatal":
		default:
			issues = append(issues, ValidationIssue{
				Field: "logging.level", Level: "warning",
				Message: "unrecognized log level " + cfg.Logging.Level,
			})
		}
	}

	return issues
}
