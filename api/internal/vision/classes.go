package vision

// ClassEntry — пара названий класса COCO: каноническое русское имя,
// под которым класс живёт в сессии, и английское имя из самой модели.
type ClassEntry struct {
	Name   string // английское имя COCO
	NameRU string // каноническое русское имя
}

// CocoClasses — словарь переводов классов COCO. Порядок соответствует
// порядку классов датасета; таблица статична и не меняется в рантайме.
var CocoClasses = []ClassEntry{
	{"person", "человек"},
	{"bicycle", "велосипед"},
	{"car", "автомобиль"},
	{"motorcycle", "мотоцикл"},
	{"airplane", "самолет"},
	{"bus", "автобус"},
	{"train", "поезд"},
	{"truck", "грузовик"},
	{"boat", "лодка"},
	{"traffic light", "светофор"},
	{"fire hydrant", "пожарный гидрант"},
	{"stop sign", "знак стоп"},
	{"parking meter", "паркомат"},
	{"bench", "скамейка"},
	{"bird", "птица"},
	{"cat", "кот"},
	{"dog", "собака"},
	{"horse", "лошадь"},
	{"sheep", "овца"},
	{"cow", "корова"},
	{"elephant", "слон"},
	{"bear", "медведь"},
	{"zebra", "зебра"},
	{"giraffe", "жираф"},
	{"backpack", "рюкзак"},
	{"umbrella", "зонт"},
	{"handbag", "сумка"},
	{"tie", "галстук"},
	{"suitcase", "чемодан"},
	{"frisbee", "фрисби"},
	{"skis", "лыжи"},
	{"snowboard", "сноуборд"},
	{"sports ball", "мяч"},
	{"kite", "воздушный змей"},
	{"baseball bat", "бейсбольная бита"},
	{"baseball glove", "бейсбольная перчатка"},
	{"skateboard", "скейтборд"},
	{"surfboard", "доска для серфинга"},
	{"tennis racket", "теннисная ракетка"},
	{"bottle", "бутылка"},
	{"wine glass", "бокал"},
	{"cup", "чашка"},
	{"fork", "вилка"},
	{"knife", "нож"},
	{"spoon", "ложка"},
	{"bowl", "миска"},
	{"banana", "банан"},
	{"apple", "яблоко"},
	{"sandwich", "сэндвич"},
	{"orange", "апельсин"},
	{"broccoli", "брокколи"},
	{"carrot", "морковь"},
	{"hot dog", "хот-дог"},
	{"pizza", "пицца"},
	{"donut", "пончик"},
	{"cake", "торт"},
	{"chair", "стул"},
	{"couch", "диван"},
	{"potted plant", "растение в горшке"},
	{"bed", "кровать"},
	{"dining table", "обеденный стол"},
	{"toilet", "туалет"},
	{"tv", "телевизор"},
	{"laptop", "ноутбук"},
	{"mouse", "мышь"},
	{"remote", "пульт"},
	{"keyboard", "клавиатура"},
	{"cell phone", "телефон"},
	{"microwave", "микроволновка"},
	{"oven", "духовка"},
	{"toaster", "тостер"},
	{"sink", "раковина"},
	{"refrigerator", "холодильник"},
	{"book", "книга"},
	{"clock", "часы"},
	{"vase", "ваза"},
	{"scissors", "ножницы"},
	{"teddy bear", "плюшевый мишка"},
	{"hair drier", "фен"},
	{"toothbrush", "зубная щетка"},
}

var (
	ruByEnglish = map[string]string{}
	englishByRU = map[string]string{}
)

func init() {
	for _, c := range CocoClasses {
		ruByEnglish[c.Name] = c.NameRU
		englishByRU[c.NameRU] = c.Name
	}
}

// CanonicalName переводит английское имя COCO в каноническое русское.
// Если перевода нет, имя возвращается как есть.
func CanonicalName(english string) string {
	if ru, ok := ruByEnglish[english]; ok {
		return ru
	}
	return english
}

// EnglishName возвращает английское имя для канонического русского
// и false, если перевода нет.
func EnglishName(canonical string) (string, bool) {
	en, ok := englishByRU[canonical]
	return en, ok
}

// DisplayName — имя класса для подсказок пользователю: английское,
// если оно известно, иначе каноническое.
func DisplayName(canonical string) string {
	if en, ok := englishByRU[canonical]; ok {
		return en
	}
	return canonical
}
