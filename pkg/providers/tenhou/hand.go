// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package tenhou

import (
	"slices"
	"strconv"
	"strings"
)

var yakuNames = map[int]string{
	0: "門前清自摸和", 1: "立直", 2: "一発", 3: "搶槓", 4: "嶺上開花",
	5: "海底摸月", 6: "河底撈魚", 7: "平和", 8: "断么九", 9: "一盃口",
	10: "自風東", 11: "自風南", 12: "自風西", 13: "自風北",
	14: "場風東", 15: "場風南", 16: "場風西", 17: "場風北",
	18: "役牌白", 19: "役牌發", 20: "役牌中", 21: "ダブル立直", 22: "七対子",
	23: "混全帯么九", 24: "一気通貫", 25: "三色同順", 26: "三色同刻", 27: "三槓子",
	28: "対々和", 29: "三暗刻", 30: "小三元", 31: "混老頭", 32: "二盃口",
	33: "純全帯么九", 34: "混一色", 35: "清一色",
	36: "人和", 37: "天和", 38: "地和", 39: "大三元", 40: "四暗刻",
	41: "四暗刻単騎", 42: "字一色", 43: "緑一色", 44: "清老頭", 45: "九蓮宝燈",
	46: "純正九蓮宝燈", 47: "国士無双", 48: "国士無双十三面待ち", 49: "大四喜",
	50: "小四喜", 51: "四槓子", 52: "ドラ", 53: "裏ドラ", 54: "赤ドラ",
}

func yakuName(id int) string {
	if name, ok := yakuNames[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

// tile renders a 136-tile index as number and suit; red fives are 0.
func tile(hai int) (no int, suit byte) {
	switch {
	case hai >= 0 && hai < 36:
		suit = 'm'
	case hai >= 36 && hai < 72:
		suit = 'p'
	case hai >= 72 && hai < 108:
		suit = 's'
	case hai >= 108 && hai < 136:
		suit = 'z'
	default:
		suit = '?'
	}
	no = (hai%36)/4 + 1
	if no == 5 && hai < 108 && hai%4 == 0 {
		no = 0
	}
	return no, suit
}

// tilesString renders tiles in compact notation, e.g. 123m456p.
func tilesString(hais []int) string {
	sorted := slices.Clone(hais)
	slices.Sort(sorted)

	var b strings.Builder
	var current byte
	for _, hai := range sorted {
		no, suit := tile(hai)
		if current != 0 && suit != current {
			b.WriteByte(current)
		}
		current = suit
		b.WriteString(strconv.Itoa(no))
	}
	if current != 0 {
		b.WriteByte(current)
	}
	return b.String()
}

// decodeMeld returns the tiles of an encoded call.
func decodeMeld(m int) []int {
	kui := m & 3
	switch {
	case m&(1<<2) != 0: // chi
		t := (m & 0xFC00) >> 10
		t /= 3
		t = t/7*9 + t%7
		t *= 4
		return []int{
			t + ((m & 0x0018) >> 3),
			t + 4 + ((m & 0x0060) >> 5),
			t + 8 + ((m & 0x0180) >> 7),
		}
	case m&(1<<3) != 0: // pon
		unused := (m & 0x0060) >> 5
		t := (m & 0xFE00) >> 9 / 3 * 4
		tiles := make([]int, 0, 3)
		for i := 0; i < 4; i++ {
			if t+i != t+unused {
				tiles = append(tiles, t+i)
			}
		}
		return tiles
	case m&(1<<4) != 0: // added kan
		t := (m & 0xFE00) >> 9 / 3 * 4
		return []int{t, t + 1, t + 2, t + 3}
	case m&(1<<5) != 0: // nuki
		return []int{30 * 4}
	default: // open or closed kan
		hai0 := (m & 0xFF00) >> 8
		if kui == 0 {
			hai0 = (hai0 &^ 3) + 3
		}
		t := hai0 / 4 * 4
		return []int{t, t + 1, t + 2, t + 3}
	}
}

func splitInts(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// agariString describes a winning hand: the concealed tiles, the calls and the
// winning tile on one line, followed by one line per yaku.
func agariString(n node) string {
	hand := splitInts(n.attr("hai"))
	machi, _ := strconv.Atoi(n.attr("machi"))
	if i := slices.Index(hand, machi); i >= 0 {
		hand = slices.Delete(hand, i, i+1)
	}

	var b strings.Builder
	b.WriteString(tilesString(hand))
	b.WriteByte(' ')
	for _, m := range splitInts(n.attr("m")) {
		b.WriteString(tilesString(decodeMeld(m)))
		b.WriteByte(' ')
	}
	b.WriteString(tilesString([]int{machi}))
	b.WriteByte('\n')

	yaku := splitInts(n.attr("yaku"))
	for i := 0; i+1 < len(yaku); i += 2 {
		b.WriteString(strconv.Itoa(yaku[i+1]))
		b.WriteByte(' ')
		b.WriteString(yakuName(yaku[i]))
		b.WriteByte('\n')
	}
	for _, id := range splitInts(n.attr("yakuman")) {
		b.WriteString(yakuName(id))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), " \n")
}
