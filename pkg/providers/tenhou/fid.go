// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package tenhou

import (
	"strconv"
	"strings"
)

// DefaultFids are the ranked lobbies followed when a channel has no fid set.
var DefaultFids = []string{
	"121", "57", "113", "49", "249", "185", "241", "177", "105", "41", "97",
	"33", "233", "169", "225", "161",
}

var DefaultFnames = map[string]string{
	"121": "三特南喰赤速",
	"57":  "三特南喰赤",
	"113": "三特東喰赤速",
	"49":  "三特東喰赤",
	"249": "三鳳南喰赤速",
	"185": "三鳳南喰赤",
	"241": "三鳳東喰赤速",
	"177": "三鳳東喰赤",
	"105": "四特南喰赤速",
	"41":  "四特南喰赤",
	"97":  "四特東喰赤速",
	"33":  "四特東喰赤",
	"233": "四鳳南喰赤速",
	"169": "四鳳南喰赤",
	"225": "四鳳東喰赤速",
	"161": "四鳳東喰赤",
	"0":   "/",
}

// FidOf encodes the lobby category of a game.
func FidOf(info Info) string {
	fid := 0b00000001
	if info.PlayerNum == 3 {
		fid |= typeSanma
	}
	if info.PlayerLevel == 3 {
		fid |= typePhoenix
	} else {
		fid |= 0b00100000
	}
	if info.PlayLength == 2 {
		fid |= typeHanchan
	}
	if info.Rapid == 1 {
		fid |= typeRapid
	}
	return strconv.Itoa(fid)
}

// FnameOf spells the lobby category, e.g. 四鳳南喰赤.
func FnameOf(info Info) string {
	var b strings.Builder
	flags := []struct {
		char string
		on   bool
	}{
		{"三", info.PlayerNum == 3},
		{"四", info.PlayerNum == 4},
		{"特", info.PlayerLevel == 2},
		{"鳳", info.PlayerLevel == 3},
		{"東", info.PlayLength == 1},
		{"南", info.PlayLength == 2},
		{"喰", info.Kuitanari != 0},
		{"赤", info.Akaari != 0},
		{"速", info.Rapid != 0},
	}
	for _, f := range flags {
		if f.on {
			b.WriteString(f.char)
		}
	}
	return b.String()
}

// Fname returns the default name of fid, or fid itself.
func Fname(fid string) string {
	if name, ok := DefaultFnames[fid]; ok {
		return name
	}
	return fid
}
