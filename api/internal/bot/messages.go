package bot

// Тексты бота. Русский — основной язык интерфейса, имена классов
// пользователь может вводить и по-русски, и по-английски.
const (
	msgStart = `👋 Привет! Я нахожу и сегментирую объекты на фотографиях.

1. Пришли фото — я отмечу найденные объекты рамками.
2. Напиши, какие классы сегментировать (например: car person dog).
3. Получи маски выбранных объектов.

Команды: /help — справка, /stats — твоя статистика.`

	msgHelp = `ℹ️ Как пользоваться ботом:

• Пришли фотографию — я покажу найденные объекты и их количество.
• Ответь списком классов через пробел или запятую: person, dog
• Названия можно писать по-русски или по-английски, опечатки я исправлю.
• /start — начать заново в любой момент.`

	msgDetectorUnavailable = "❌ Детектор объектов недоступен. Попробуйте позже."

	msgNoObjects = "🤷 Объекты не найдены. Попробуйте другое фото."

	msgAnnotatedCaption = "🔍 Найденные объекты отмечены рамками"

	msgNoSession = "Начни с команды /start и отправь фотографию для анализа."

	msgNeedPhoto = "📷 Жду фотографию. Пришли фото, и я найду на нём объекты."

	msgRestart = "Отправь новую фотографию для анализа или используй /start"

	msgParseFail = "❌ Не удалось распознать классы. Попробуйте еще раз.\n" +
		"Например: car person bicycle"

	msgSegmentationStart = "✂️ Начинаю сегментацию выбранных объектов..."

	msgProcessingError = "⚠️ Ошибка обработки. Попробуйте другое фото или повторите позже."
)
