package main

// Provider blank imports: each import activates a self-registering adapter.

import (
	_ "github.com/Strob0t/patchpal/internal/adapter/githubpr"
	_ "github.com/Strob0t/patchpal/internal/adapter/gitlocal"
	_ "github.com/Strob0t/patchpal/internal/adapter/nats"
)
