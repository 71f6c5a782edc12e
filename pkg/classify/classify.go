/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package classify holds the pure per-agent classifiers: privilege, liveness,
// OS family and transport protocol class.
package classify

import "strings"

const (
	windowsSystemSID   = "S-1-5-18"
	windowsAdminRIDEnd = "-500"
	unixRootUID        = "0"
	unixRootUser       = "root"
)

var windowsPrivilegedNames = []string{
	"administrator",
	"system",
	`nt authority\system`,
	"admin",
}

// IsPrivileged reports whether the account looks elevated for its OS.
// It is a name/SID heuristic and misses non-standard privileged accounts.
func IsPrivileged(username, userID, osName string) bool {
	osLower := strings.ToLower(osName)

	switch {
	case strings.Contains(osLower, "windows"):
		user := strings.ToLower(username)
		for _, name := range windowsPrivilegedNames {
			if strings.Contains(user, name) {
				return true
			}
		}

		return strings.Contains(userID, windowsSystemSID) || strings.HasSuffix(userID, windowsAdminRIDEnd)
	case strings.Contains(osLower, "linux"),
		strings.Contains(osLower, "unix"),
		strings.Contains(osLower, "darwin"):
		return strings.ToLower(username) == unixRootUser || userID == unixRootUID
	default:
		return false
	}
}

// Liveness is the reported health of an agent.
type Liveness string

const (
	Alive Liveness = "alive"
	Dead  Liveness = "dead"
)

// Status maps the upstream dead flag to a Liveness. Beacon check-in schedules
// are not consulted: jitter makes an overdue check-in an unreliable signal.
func Status(isDead bool) Liveness {
	if isDead {
		return Dead
	}

	return Alive
}

// OSFamily is the coarse OS bucket used by the statistics.
type OSFamily string

const (
	FamilyWindows OSFamily = "windows"
	FamilyLinux   OSFamily = "linux"
	FamilyOther   OSFamily = "other"
)

// Family buckets an OS identifier. Darwin and other unixes land in FamilyOther.
func Family(osName string) OSFamily {
	osLower := strings.ToLower(osName)

	switch {
	case strings.Contains(osLower, "windows"):
		return FamilyWindows
	case strings.Contains(osLower, "linux"):
		return FamilyLinux
	default:
		return FamilyOther
	}
}

// ProtocolClass groups transports for display coloring.
type ProtocolClass string

const (
	ProtocolHTTP  ProtocolClass = "http"
	ProtocolTLS   ProtocolClass = "tls"
	ProtocolDNS   ProtocolClass = "dns"
	ProtocolTCP   ProtocolClass = "tcp"
	ProtocolOther ProtocolClass = "other"
)

// ProtocolOf classifies a transport identifier. Checks run in order, so
// "https" is HTTP and "mtls" is TLS.
func ProtocolOf(transport string) ProtocolClass {
	t := strings.ToLower(transport)

	switch {
	case strings.Contains(t, "http"):
		return ProtocolHTTP
	case strings.Contains(t, "mtls"), strings.Contains(t, "tls"):
		return ProtocolTLS
	case strings.Contains(t, "dns"):
		return ProtocolDNS
	case strings.Contains(t, "tcp"):
		return ProtocolTCP
	default:
		return ProtocolOther
	}
}

// ProtocolKey is the histogram key for a transport.
func ProtocolKey(transport string) string {
	return strings.ToUpper(transport)
}
