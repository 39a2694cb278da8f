package gitlocal

import (
	"fmt"

	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

func init() {
	diffsource.Register(providerName, func(mode diffsource.Mode, deps diffsource.Deps) (diffsource.Source, error) {
		local, ok := mode.(diffsource.Local)
		if !ok {
			return nil, fmt.Errorf("gitlocal: unsupported mode %T", mode)
		}
		return NewProvider(deps.Pool, local.Path), nil
	})
}
