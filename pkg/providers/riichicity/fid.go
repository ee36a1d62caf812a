// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package riichicity

var DefaultFids = []string{"413", "423", "414", "424", "313", "323", "314", "324"}

var DefaultFnames = map[string]string{
	"413": "四人炎阳东风战",
	"423": "四人炎阳半庄战",
	"414": "四人银河东风战",
	"424": "四人银河半庄战",
	"313": "三人炎阳东风战",
	"323": "三人炎阳半庄战",
	"314": "三人银河东风战",
	"324": "三人银河半庄战",
	"0":   "/",
}

// Fname returns the default name of fid, or fid itself.
func Fname(fid string) string {
	if name, ok := DefaultFnames[fid]; ok {
		return name
	}
	return fid
}
