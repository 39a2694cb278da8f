package githubpr

import (
	"fmt"

	"github.com/Strob0t/patchpal/internal/port/diffsource"
)

func init() {
	diffsource.Register(providerName, func(mode diffsource.Mode, deps diffsource.Deps) (diffsource.Source, error) {
		hosted, ok := mode.(diffsource.Hosted)
		if !ok {
			return nil, fmt.Errorf("githubpr: unsupported mode %T", mode)
		}
		return NewProvider(hosted, deps.GitHubToken, deps.GitHubAPIURL)
	})
}
