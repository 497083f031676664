package main

import _ "github.com/mj1618/a11y-chain/internal/platform/uinput"
