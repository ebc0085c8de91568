package config

// DefaultNationalities is the nationality option list offered when
// study.nationalities is not configured.
var DefaultNationalities = []string{
	"Afghan", "Albanian", "Algerian", "American", "Argentinian", "Armenian",
	"Australian", "Austrian", "Azerbaijani", "Bangladeshi", "Belarusian",
	"Belgian", "Bolivian", "Bosnian", "Brazilian", "British", "Bulgarian",
	"Cambodian", "Cameroonian", "Canadian", "Chilean", "Chinese", "Colombian",
	"Croatian", "Czech", "Danish", "Dutch", "Egyptian", "Ethiopian",
	"Finnish", "French", "Georgian", "German", "Ghanaian", "Greek",
	"Hungarian", "Indian", "Indonesian", "Iranian", "Iraqi", "Irish",
	"Israeli", "Italian", "Japanese", "Jordanian", "Kazakh", "Kenyan",
	"Korean", "Kuwaiti", "Lebanese", "Libyan", "Malaysian", "Mexican",
	"Moroccan", "Nigerian", "Norwegian", "Other", "Pakistani", "Palestinian",
	"Peruvian", "Philippine", "Polish", "Portuguese", "Romanian", "Russian",
	"Saudi", "Serbian", "Slovak", "South African", "Spanish", "Swedish",
	"Swiss", "Syrian", "Taiwanese", "Thai", "Tunisian", "Turkish",
	"Ukrainian", "Uruguayan", "Venezuelan", "Vietnamese",
}

// DefaultNativeLanguages is the native-language option list.
var DefaultNativeLanguages = []string{
	"Arabic", "Bengali", "Chinese (Cantonese)", "Chinese (Mandarin)",
	"Czech", "Dutch", "English", "Farsi/Persian", "French", "German",
	"Greek", "Hebrew", "Hindi", "Hungarian", "Indonesian", "Irish (Gaelic)",
	"Italian", "Japanese", "Korean", "Malay", "Norwegian", "Other", "Polish",
	"Portuguese", "Romanian", "Russian", "Serbian/Croatian", "Spanish",
	"Swedish", "Thai", "Turkish", "Ukrainian", "Vietnamese",
}

// DefaultEducationLevels is the education option list, lowest first.
var DefaultEducationLevels = []string{
	"High school / Secondary education",
	"Bachelor's degree (ongoing)",
	"Bachelor's degree (completed)",
	"Master's degree (ongoing)",
	"Master's degree (completed)",
	"PhD (ongoing)",
	"PhD (completed)",
	"Other",
}
