// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package httpapi exposes the auth service and the scoring proxy as a JSON
// HTTP API. Error codes from the domain packages are mapped to statuses and
// client messages here; internal error detail is logged and never returned.
package httpapi
