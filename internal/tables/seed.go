package tables

// Seed returns the content written on first read of an empty store.
func Seed() Aggregate {
	return Aggregate{
		Type: AggregateType,
		Tables: []Table{
			seedTable("0-7 پۆل",
				NewRow("یاسین رسول", "ن.ز.١٥"),
				NewRow("ژیوب حاجی", "ن.ز.١٥"),
				NewRow("بەشدار یونس", "ن.ز.٥"),
				NewRow("محەممەد ع.م فارس", "ن.ز.٥"),
				NewRow("شەهید موحسین", "ن.ز.٥"),
				NewRow("هەمرەز رسول", "ن.ز.٥"),
			),
			seedTable("0-6 پۆل",
				NewRow("محەممەد ع.م ئەمین", "ن.ز.٥"),
				NewRow("ڕێڤاز عاسەم", "ن.ز.٤"),
				NewRow("سیوان حسین", "ن.ز.٥"),
				NewRow("تاران خەلیل", "ن.ز.١٥"),
				NewRow("هانا هەڤاڵ", "ن.ز.٥"),
				NewRow("هاوڕێ قادر", "ن.ز.١٥"),
			),
			seedTable("0-5 پۆل",
				NewRow("ڕەڤیوان مەریوان - دیاری فەتاح", "ن.ز.٥"),
				NewRow("زانیار ئاحەد - محەمەد والی", "ن.ز.٥"),
				NewRow("هانا حسین - حسین محەمەد", "ن.ز.٥"),
				NewRow("محەمەد کریم - علی عەباس", "ن.ز.٥"),
				NewRow("حسین فایق - یعقوب یاسین", "ن.ز.٦"),
				NewRow("ڕوخسار ئاحەد - هەڵۆیست جمال", "ن.ز.٦"),
			),
			seedTable("پۆل نەناسراو",
				NewRow("", "ن.ز.٤"),
				NewRow("", "ن.ز.٥"),
				NewRow("", "ن.ز.٥"),
				NewRow("", "ن.ز.٤"),
				NewRow("", "ن.ز.٥"),
				NewRow("", "ن.ز.٦"),
				NewRow("", "ن.ز.٦"),
			),
			seedTable("دەركەی فۆرج",
				NewRow("شیرکو فاتح", "ن.ز.١٥"),
				NewRow("پێشکەوت خەفور", "ن.ز.١٣"),
				NewRow("محەممەد بەختیار", "ن.ز.٦"),
				NewRow("محەممەد عەبدوڵا", "ن.ز.١٣"),
				NewRow("محەممەد حەمید", "ن.ز.١٥"),
			),
			seedTable("مەفەرەزە 5-0",
				NewRow("هەریم عوسمان", "ن.ز.٥"),
				NewRow("ئەنفەواد سەلام", "ن.ز.٦"),
			),
			seedTable("0-4 پۆل",
				NewRow("هێڤار سەردار", "ن.ز.٤"),
				NewRow("دیاری خدر", "ن.ز.٥"),
			),
		},
		Metadata: map[string]string{
			"مامۆستا":  "بەشدار رزگار",
			"تیم لیدەر": "پیشەوا محەمەد",
			"کات":      "٣٠ = ٢ + ٣",
		},
	}
}

func seedTable(name string, rows ...Row) Table {
	return Table{Name: name, Columns: []string{"ناو", "ڕەتبە"}, Data: rows}
}
