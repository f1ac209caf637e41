// Package modules lists the application modules loaded at boot.
package modules

import (
	"github.com/helmline/pms/modules/maintenance"
	"github.com/helmline/pms/pkg/application"
)

func BuiltInModules() []application.Module {
	return []application.Module{
		maintenance.NewModule(),
	}
}
