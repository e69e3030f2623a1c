package main

import _ "github.com/samsamfire/gobxcan/pkg/peripheral/socketcan"
