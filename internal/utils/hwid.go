package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is a stable, app-scoped hardware identifier used to tell pushes from
// different devices apart in the remote snapshot.
var HWID = getHWID()

func getHWID() string {
	id, err := machineid.ProtectedID("vaultdrive")
	if err != nil {
		return "unknown"
	}
	return id
}
